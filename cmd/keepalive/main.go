package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/samber/oops"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/config"
)

var (
	BuildInfo = "{}"

	versionFlag = flag.Bool("version", false, "print version information")
)

func run(ctx context.Context) error {
	// Load Configuration
	defaultValues := map[string]any{}
	cfg := new(config.Config)

	err := commoncfg.LoadConfig(cfg, defaultValues, "/etc/taskboard", "$HOME/.taskboard", ".")
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to load the configuration")
	}

	err = commoncfg.UpdateConfigVersion(&cfg.BaseConfig, BuildInfo)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to update the version configuration")
	}

	err = logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to initialise the logger")
	}

	err = business.KeepAliveMain(ctx, cfg)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to run the keep alive loop")
	}

	return nil
}

func main() {
	flag.Parse()

	if *versionFlag {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(value)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	if err != nil {
		slog.Error("keep alive stopped", "error", err)
		cancel()
		os.Exit(1)
	}
}
