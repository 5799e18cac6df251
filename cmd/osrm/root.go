package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/osrm-kit/internal/app"
	"github.com/samvad-hq/osrm-kit/internal/config"
	"github.com/samvad-hq/osrm-kit/internal/logger"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

// globals holds state shared by every subcommand after the root pre-run.
type globals struct {
	baseURL  string
	profile  string
	logLevel string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "osrm",
		Short: "OSRM routing client and map data tooling",
		Long: `osrm talks to an OSRM routing server and prepares map data for one.

Examples:
  # Route between two points (lon,lat)
  osrm route --from 13.388860,52.517037 --to 13.397634,52.529407

  # Download and process a region, then check the server
  osrm setup monaco

  # Run the demo walkthrough against a local server
  osrm example`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.baseURL, "base-url", "", "OSRM server URL (overrides OSRM_BASE_URL)")
	flags.StringVar(&g.profile, "profile", "", "routing profile in request paths (overrides OSRM_PROFILE)")
	flags.StringVar(&g.logLevel, "log-level", "", "emit structured logs at this level (debug|info|warn|error)")

	root.AddCommand(
		newRouteCmd(g),
		newTableCmd(g),
		newNearestCmd(g),
		newTripCmd(g),
		newMatchCmd(g),
		newRunCmd(g),
		newExampleCmd(g),
		newSetupCmd(g),
		newDownloadCmd(g),
		newProcessCmd(g),
		newDepsCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads configuration and applies flag overrides. Structured logs are
// only emitted when --log-level is given so they do not mix with results.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(g.baseURL); v != "" {
		cfg.OSRMBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(g.profile); v != "" {
		cfg.OSRMProfile = v
	}
	g.cfg = cfg
	g.log = logger.NopLogger{}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
		zl, err := logger.Init(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		g.log = zl
	}
	return nil
}

func (g *globals) client() *osrm.Client {
	return app.NewClient(g.cfg, g.log)
}
