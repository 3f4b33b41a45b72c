package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dronewatch/drone-weather/internal/app"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/pkg/logger"
)

// watch: no HTTP server, just the loop and a log line per event.
func watchCmd() *cobra.Command {
	var (
		lat, lng float64
		drone    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the refresh loop and log every event until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeApp(a)

			wlog := logger.Component("watch")
			a.Bus.SubscribeAll(func(_ context.Context, env domain.Envelope) error {
				wlog.Info().
					Str("event_id", env.ID).
					Str("type", string(env.Type)).
					Interface("payload", env.Payload).
					Msg("event")
				return nil
			})

			var start domain.Event = domain.FetchWeather{Latitude: lat, Longitude: lng}
			if drone {
				start = domain.FetchDroneData{}
			}
			if err := a.Publish(ctx, start); err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to look up")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude to look up")
	cmd.Flags().BoolVar(&drone, "drone", false, "start from the drone position instead of --lat/--lng")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	cmd.MarkFlagsOneRequired("lat", "drone")
	cmd.MarkFlagsMutuallyExclusive("lat", "drone")
	return cmd
}
