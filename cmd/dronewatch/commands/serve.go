package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dronewatch/drone-weather/internal/app"
	"github.com/dronewatch/drone-weather/internal/core/domain"
)

const closeTimeout = 15 * time.Second

// serve: HTTP API plus the refresh loop, optionally seeded with a coordinate.
func serveCmd() *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the event orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				ev := domain.FetchWeather{Latitude: lat, Longitude: lng}
				if err := a.Publish(ctx, ev); err != nil {
					return err
				}
				log.Info().Float64("lat", lat).Float64("lng", lng).Msg("refresh loop seeded")
			}

			return a.Serve(ctx)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to start the refresh loop from")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude to start the refresh loop from")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	return cmd
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	log.Info().Msg("stopped")
}
