package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/pygraph/internal/config"
	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/logging"
	"github.com/dusk-indust/pygraph/internal/pyoracle"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the persistent flags shared by every subcommand.
type cliFlags struct {
	Root      string
	Config    string
	LogLevel  string
	Store     string
	StorePath string
	Format    string
}

// app is the state a subcommand runs with once flags and config are merged.
type app struct {
	flags cliFlags
	root  string
	cfg   *config.ProjectConfig
	log   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "pygraph",
		Short:         "Extract definitions and references from Python source",
		Long:          "pygraph graphs Python files into definitions and byte-offset references, indexes projects into a graph store, and serves the graph over MCP.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.Root, "root", ".", "project root")
	pf.StringVar(&a.flags.Config, "config", "", "config file (default: pygraph.yml in the root)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug|info|warn|error|off")
	pf.StringVar(&a.flags.Store, "store", "", "graph store: memory|kuzu|sqlite")
	pf.StringVar(&a.flags.StorePath, "store-path", "", "store location, relative to the root")
	pf.StringVar(&a.flags.Format, "format", "json", "output format: json|text")

	cmd.AddCommand(
		newGraphCmd(a),
		newIndexCmd(a),
		newDefsCmd(a),
		newRefsCmd(a),
		newDepsCmd(a),
		newImpactCmd(a),
		newClustersCmd(a),
		newDiagramCmd(a),
		newServeMCPCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the project config and lets explicit flags override it.
func (a *app) setup(stderr io.Writer) error {
	if a.flags.Format != "json" && a.flags.Format != "text" {
		return fmt.Errorf("invalid format %q: want json or text", a.flags.Format)
	}
	root, err := filepath.Abs(a.flags.Root)
	if err != nil {
		return fmt.Errorf("resolve root %q: %w", a.flags.Root, err)
	}
	a.root = root

	var cfg *config.ProjectConfig
	if a.flags.Config != "" {
		cfg, err = config.LoadFile(a.flags.Config)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.flags.LogLevel != "" {
		cfg.LogLevel = a.flags.LogLevel
	}
	if a.flags.Store != "" {
		cfg.Store = a.flags.Store
	}
	if a.flags.StorePath != "" {
		cfg.StorePath = a.flags.StorePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = logging.New(stderr, level)
	return nil
}

// storePath returns the configured store location as an absolute path.
func (a *app) storePath() string {
	if filepath.IsAbs(a.cfg.StorePath) {
		return a.cfg.StorePath
	}
	return filepath.Join(a.root, a.cfg.StorePath)
}

func (a *app) newOracle() (*pyoracle.Oracle, error) {
	oracle, err := pyoracle.New(a.root, pyoracle.WithSearchPaths(a.cfg.SearchPaths...))
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	return oracle, nil
}

func (a *app) canonicalizer() *grapher.Canonicalizer {
	return grapher.NewCanonicalizer(a.root, a.cfg.PackageMarkers, a.cfg.RuntimePrefix)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
