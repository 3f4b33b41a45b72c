package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dronewatch/drone-weather/internal/infrastructure/config"
	"github.com/dronewatch/drone-weather/pkg/logger"
)

var (
	envFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "dronewatch",
		Short:        "Drone weather orchestrator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			c, err := config.Load(cmd.Context(), files...)
			if err != nil {
				return err
			}
			if logLevel != "" {
				c.LogLevel = logLevel
			}
			cfg = c
			log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.PrettyLogs(),
				Service: "dronewatch",
				Env:     cfg.Env,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")

	root.AddCommand(serveCmd(), watchCmd())
	return root.Execute()
}
