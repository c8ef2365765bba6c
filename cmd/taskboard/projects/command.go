package projects

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
	"github.com/openkcm/taskboard-client/pkg/taskboard"
)

func Cmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		listCmd(buildInfo, out),
		createCmd(buildInfo, out),
		getCmd(buildInfo, out),
		deleteCmd(buildInfo),
		membershipCmd(buildInfo, out, "add-member", "Add a member to a project", (*taskboard.Client).AddMember),
		membershipCmd(buildInfo, out, "remove-member", "Remove a member from a project", (*taskboard.Client).RemoveMember),
		membershipCmd(buildInfo, out, "promote", "Promote a member to manager", (*taskboard.Client).PromoteManager),
		membershipCmd(buildInfo, out, "demote", "Demote a manager to member", (*taskboard.Client).DemoteManager),
		statsCmd(buildInfo, out),
	)

	return cmd
}

func command(use, short, buildInfo string, fn func(context.Context, *business.App) error) *cobra.Command {
	return cmdutils.CobraCommand(use, short, short+".", buildInfo, cmdutils.RunAsJob, business.WithApp(fn))
}

func listCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	return command("list", "List the projects I belong to", buildInfo, func(ctx context.Context, app *business.App) error {
		projects, err := app.Client.ListProjects(ctx)
		if err != nil {
			return err
		}

		return out.Print(projects)
	})
}

func createCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var p taskboard.NewProject

	cmd := command("create", "Create a project", buildInfo, func(ctx context.Context, app *business.App) error {
		id, err := app.Client.CreateProject(ctx, p)
		if err != nil {
			return err
		}

		return out.Print(map[string]string{"id": id})
	})

	cmd.Flags().StringVar(&p.Title, "title", "", "project title")
	cmd.Flags().StringVar(&p.Description, "description", "", "project description")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func getCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var id string

	cmd := command("get", "Show a project", buildInfo, func(ctx context.Context, app *business.App) error {
		project, err := app.Client.GetProject(ctx, id)
		if err != nil {
			return err
		}

		return out.Print(project)
	})

	projectFlag(cmd, &id)

	return cmd
}

func deleteCmd(buildInfo string) *cobra.Command {
	var id string

	cmd := command("delete", "Delete a project", buildInfo, func(ctx context.Context, app *business.App) error {
		return app.Client.DeleteProject(ctx, id)
	})

	projectFlag(cmd, &id)

	return cmd
}

type membershipFunc func(c *taskboard.Client, ctx context.Context, projectID, email string) (taskboard.Project, error)

func membershipCmd(buildInfo string, out *cmdutils.Output, use, short string, fn membershipFunc) *cobra.Command {
	var id, email string

	cmd := command(use, short, buildInfo, func(ctx context.Context, app *business.App) error {
		project, err := fn(app.Client, ctx, id, email)
		if err != nil {
			return err
		}

		return out.Print(project)
	})

	projectFlag(cmd, &id)
	cmd.Flags().StringVar(&email, "email", "", "member email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func statsCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var id string

	cmd := command("stats", "Show the analytics of a project", buildInfo, func(ctx context.Context, app *business.App) error {
		stats, err := app.Client.Stats(ctx, id)
		if err != nil {
			return err
		}

		return out.Print(stats)
	})

	projectFlag(cmd, &id)

	return cmd
}

func projectFlag(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVar(id, "id", "", "project id")
	_ = cmd.MarkFlagRequired("id")
}
