package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/taskboard-client/cmd/taskboard/auth"
	"github.com/openkcm/taskboard-client/cmd/taskboard/keepalive"
	"github.com/openkcm/taskboard-client/cmd/taskboard/me"
	"github.com/openkcm/taskboard-client/cmd/taskboard/projects"
	"github.com/openkcm/taskboard-client/cmd/taskboard/tasks"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Taskboard client version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	out := &cmdutils.Output{W: os.Stdout}

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Taskboard client",
		Long:          "Command line client for the taskboard API. Keeps the login session alive and refreshes expired tokens transparently.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&out.Format, "output", "o", cmdutils.OutputYAML, "output format: yaml or json")

	cmd.AddCommand(
		versionCmd,
		auth.Cmd(BuildInfo, out),
		projects.Cmd(BuildInfo, out),
		tasks.Cmd(BuildInfo, out),
		me.Cmd(BuildInfo, out),
		keepalive.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to run the command", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
