package commands

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/config"
)

// Assets are the embedded frontend files
type Assets struct {
	Index  []byte
	Static fs.FS
}

// globals holds state shared by all subcommands
type globals struct {
	configPath string
	verbose    bool
	dev        bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the command tree. Running it without a
// subcommand starts the server.
func NewRootCommand(assets Assets) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "bildungszeit",
		Short: "Berlin Bildungszeit course finder",
		Long: `Serves the Berlin Bildungszeit course catalog as a searchable table
and map. Courses are fetched from berlin.de, restricted to Berlin events of
the coming year and geocoded through Mapbox.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg

			logger, err := newLogger(g.verbose, g.dev)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, assets)
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "config.yaml", "Config file (.yaml or .toml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&g.dev, "dev", false, "Human-readable development logging")

	root.AddCommand(
		newServeCommand(g, assets),
		newHashPasswordCommand(g),
		newFetchCommand(g),
	)
	return root
}

func newLogger(verbose, dev bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
