package keepalive

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"keepalive",
		"Taskboard session keep alive",
		"Refreshes the stored tokens periodically so the session never expires while it runs",
		buildInfo,
		cmdutils.RunAsService,
		business.KeepAliveMain,
	)
}
