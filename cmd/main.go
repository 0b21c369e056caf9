package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"weavoor/internal/config"
)

const configFilePath = "./configs/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "weavoor",
		Short:         "Summarize talks and podcasts and weave them into a graph of related episodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			c.cfg = cfg
			setupLogging(cfg.Logging, cmd.ErrOrStderr())
			log.Debug().Str("path", c.configPath).Msg("Loaded config")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", configFilePath, "path to the config file")

	root.AddCommand(
		newWeaveCmd(c),
		newSearchCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newIndexCmd(c),
	)
	return root
}

func setupLogging(cfg config.LoggingConfig, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Caller().Logger()
}
