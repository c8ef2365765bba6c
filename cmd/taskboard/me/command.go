package me

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
	"github.com/openkcm/taskboard-client/pkg/taskboard"
)

func Cmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var state string

	cmd := cmdutils.CobraCommand(
		"me",
		"Show the logged in user",
		"Shows the profile of the logged in user. With --state it counts the user's tasks in that state instead.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			if state != "" {
				count, err := app.Client.MyTaskCount(ctx, taskboard.TaskState(state))
				if err != nil {
					return err
				}

				return out.Print(map[string]any{"state": state, "count": count})
			}

			user, err := app.Client.Me(ctx)
			if err != nil {
				return err
			}

			return out.Print(user)
		}),
	)

	cmd.Flags().StringVar(&state, "state", "", "count the tasks assigned to me in this state")

	return cmd
}
