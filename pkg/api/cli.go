package api

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/api/routes"
	"github.com/travigo/mobility-monitor/pkg/config"
	"github.com/travigo/mobility-monitor/pkg/monitor"
	"github.com/travigo/mobility-monitor/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the mobility refresher and its web API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Value: ":8080",
				Usage: "listen target for the web server",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Value: "Europe/Berlin",
				Usage: "timezone used for departure clock times",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			if err := redis_client.Connect(cfg.RedisConnection()); err != nil {
				return err
			}

			timeLocation, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return err
			}

			service, err := monitor.NewService(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go service.Refresher.Run(ctx)

			webApp := NewApp(&routes.MobilityRoutes{
				Store:          service.Store,
				DeviceLocation: service.DeviceLocation,
				Refresher:      service.Refresher,
				TimeLocation:   timeLocation,
			})

			go func() {
				<-ctx.Done()
				log.Info().Msg("Shutting down web server")
				if err := webApp.Shutdown(); err != nil {
					log.Error().Err(err).Msg("Failed to shut down web server")
				}
			}()

			log.Info().Str("listen", c.String("listen")).Msg("Starting mobility web API")

			return webApp.Listen(c.String("listen"))
		},
	}
}
