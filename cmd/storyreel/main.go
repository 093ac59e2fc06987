// Command storyreel manages storyboard projects kept as plain directories
// under a workspace root.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/logging"
	"github.com/storyreel/storyreel/internal/ui"
)

var (
	configFile string
	verbose    bool
	jsonOutput bool

	cfg    *config.Config
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "storyreel",
	Short: "Storyboard projects on disk",
	Long: `storyreel keeps storyboard projects as plain directories under a
workspace root. Each project holds an ordered list of scenes with text,
an optional image, attachments and transition notes between scenes.

The workspace root is taken from --root, then STORYREEL_ROOT or the config
file, then the last root used on this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(config.Options{ConfigFile: configFile, Flags: cmd.Flags()})
		if err != nil {
			return err
		}
		cfg = c
		ui.Configure(cfg.NoColor)
		return setupLogging("")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

// setupLogging (re)builds the logger. file overrides the configured log
// file when the latter is empty.
func setupLogging(file string) error {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if cfg.LogFile != "" {
		file = cfg.LogFile
	}
	l, err := logging.New(logging.Options{
		Level:      level,
		File:       file,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	_ = logger.Close()
	logger = l
	return nil
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "workspace", Title: "Workspace:"},
		&cobra.Group{ID: "projects", Title: "Projects:"},
		&cobra.Group{ID: "scenes", Title: "Scenes:"},
		&cobra.Group{ID: "server", Title: "Live updates:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.String("root", "", "workspace root directory")
	pf.StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/storyreel/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Failure(err.Error()))
		os.Exit(1)
	}
}
