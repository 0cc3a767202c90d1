package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/zan8in/gologger"
	"github.com/zan8in/hefest/pkg/config"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/runner"
)

func main() {
	options, err := config.ParseOptions()
	if err != nil {
		gologger.Fatal().Msgf("Could not parse options: %s\n", err)
	}

	if options.Version {
		gologger.Print().Msgf("hefest %s\n", config.Version)
		return
	}
	if !options.NoBanner && !options.Silent {
		config.ShowBanner()
	}

	c, err := config.New(options.ConfigFile)
	if err != nil {
		gologger.Fatal().Msgf("Could not read config: %s\n", err)
	}
	options.Merge(c)

	r, err := runner.New(options)
	if err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, err := r.Run(ctx)
	stop()

	if err != nil {
		var rerr *portscan.ResolutionError
		if errors.As(err, &rerr) {
			gologger.Error().Msgf("%s\n", rerr)
			os.Exit(2)
		}
		gologger.Error().Msgf("%s\n", err)
		os.Exit(1)
	}
	if result.Interrupted {
		gologger.Warning().Msgf("Scan interrupted, %d of %d ports completed\n", result.Completed(), result.Total)
		os.Exit(130)
	}
}
