package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/osrm-kit/internal/config"
	"github.com/samvad-hq/osrm-kit/internal/setup"
)

type setupFlags struct {
	dir             string
	profile         string
	image           string
	skipDownload    bool
	skipProcessing  bool
	skipHealthCheck bool
}

func (f *setupFlags) options(g *globals, regions []string, w io.Writer) setup.Options {
	opts := setup.Options{
		Regions:         regions,
		Dir:             firstNonEmpty(f.dir, g.cfg.SetupDir),
		Profile:         firstNonEmpty(f.profile, g.cfg.SetupProfile),
		Image:           firstNonEmpty(f.image, g.cfg.SetupImage),
		BaseURL:         g.cfg.OSRMBaseURL,
		GeofabrikURL:    g.cfg.GeofabrikURL,
		SkipDownload:    f.skipDownload,
		SkipProcessing:  f.skipProcessing,
		SkipHealthCheck: f.skipHealthCheck,
		Progress:        w,
		Log:             g.log,
	}
	return opts
}

func newSetupCmd(g *globals) *cobra.Command {
	f := &setupFlags{}
	cmd := &cobra.Command{
		Use:   "setup [region...]",
		Short: "Download, process and verify OSRM map data",
		Long: `Download Geofabrik extracts, build MLD routing graphs with the OSRM docker image
and check that a server answers at --base-url. When none does, osrm-routed is started
in a detached container for the first region on the --base-url port.

Regions are Geofabrik names ("germany") or paths ("europe/germany").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(g, args, cmd.ErrOrStderr())
			res, err := setup.Setup(cmd.Context(), opts)
			reportSetup(cmd.OutOrStdout(), opts, res)
			return err
		},
	}
	bindSetupFlags(cmd, f)
	cmd.Flags().BoolVar(&f.skipDownload, "skip-download", false, "skip the download phase")
	cmd.Flags().BoolVar(&f.skipProcessing, "skip-processing", false, "skip the processing phase")
	cmd.Flags().BoolVar(&f.skipHealthCheck, "skip-health-check", false, "skip the server health check")
	return cmd
}

func newDownloadCmd(g *globals) *cobra.Command {
	f := &setupFlags{skipProcessing: true, skipHealthCheck: true}
	cmd := &cobra.Command{
		Use:   "download region [region...]",
		Short: "Download map extracts only",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(g, args, cmd.ErrOrStderr())
			res, err := setup.Setup(cmd.Context(), opts)
			reportSetup(cmd.OutOrStdout(), opts, res)
			return err
		},
	}
	cmd.Flags().StringVar(&f.dir, "dir", "", "output directory (default from SETUP_DIR)")
	return cmd
}

func newProcessCmd(g *globals) *cobra.Command {
	f := &setupFlags{skipDownload: true, skipHealthCheck: true}
	cmd := &cobra.Command{
		Use:   "process region [region...]",
		Short: "Build routing graphs from extracts already downloaded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(g, args, cmd.ErrOrStderr())
			res, err := setup.Process(cmd.Context(), args, opts)
			reportSetup(cmd.OutOrStdout(), opts, res)
			return err
		},
	}
	bindSetupFlags(cmd, f)
	return cmd
}

func bindSetupFlags(cmd *cobra.Command, f *setupFlags) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "data directory (default from SETUP_DIR)")
	cmd.Flags().StringVar(&f.profile, "lua-profile", "", "OSRM extraction profile: car, bicycle or foot (default from SETUP_PROFILE)")
	cmd.Flags().StringVar(&f.image, "image", "", "OSRM backend docker image (default from SETUP_IMAGE)")
}

func reportSetup(w io.Writer, opts setup.Options, res setup.Result) {
	for _, f := range res.Files {
		fmt.Fprintf(w, "%s %s\n", mark(true), f)
	}
	if res.Success {
		success.Fprintln(w, "setup completed")
	} else {
		failure.Fprintln(w, "setup failed")
	}
	if res.Server != "" {
		fmt.Fprintf(w, "osrm-routed container: %s\n", res.Server)
	}
	if len(res.Built) == 0 {
		return
	}
	heading.Fprintln(w, "\nStart a server with:")
	for _, r := range res.Built {
		fmt.Fprintf(w, "  %s\n", setup.ServeCommand(opts.Dir, opts.Image, r))
	}
}

func newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that external tools are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := setup.CheckDependencies()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s bash\n", mark(deps.Bash))
			fmt.Fprintf(w, "%s docker\n", mark(deps.Docker))
			fmt.Fprintf(w, "%s curl\n", mark(deps.Curl))
			fmt.Fprintf(w, "%s wget\n", mark(deps.Wget))
			if missing := deps.Missing(); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "osrm-kit %s\n", config.Version)
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
