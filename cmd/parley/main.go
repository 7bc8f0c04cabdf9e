package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/console"
	"github.com/parleyhq/parley/internal/coordination"
	"github.com/parleyhq/parley/internal/identity"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/internal/orchestrator"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("parley-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting configs: %v\n", err)
		os.Exit(1)
	}

	con, err := console.New(cfg.Console.Prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening console: %v\n", err)
		os.Exit(1)
	}

	id := identity.NewSession(cfg.Identity, log)
	dial := func(sessionToken string) (orchestrator.CoordinationClient, error) {
		return coordination.Dial(cfg.Coordination, sessionToken, log)
	}

	o := orchestrator.New(cfg, con, id, dial, log)
	if err := o.Run(); err != nil {
		log.Error().Err(err).Msg("client run error")

		var fatal *orchestrator.FatalError
		if errors.As(err, &fatal) {
			os.Exit(fatal.Code)
		}
		os.Exit(1)
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
