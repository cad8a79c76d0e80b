package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/config"
	"github.com/travigo/mobility-monitor/pkg/transport"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch mobility entries once and print them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "category to fetch, all categories when empty",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "latitude, defaults to the configured initial location",
			},
			&cli.Float64Flag{
				Name:  "lon",
				Usage: "longitude, defaults to the configured initial location",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			coords := cfg.InitialLocation()
			if c.IsSet("lat") {
				coords.Latitude = c.Float64("lat")
			}
			if c.IsSet("lon") {
				coords.Longitude = c.Float64("lon")
			}
			if err := coords.Validate(); err != nil {
				return err
			}

			service, err := NewService(cfg)
			if err != nil {
				return err
			}

			if categoryName := c.String("type"); categoryName != "" {
				category, ok := transport.ParseCategory(categoryName)
				if !ok {
					return fmt.Errorf("unknown category %q", categoryName)
				}
				service.Orchestrator.Categories = []transport.TransportType{category}
			}

			log.Info().
				Float64("lat", coords.Latitude).
				Float64("lon", coords.Longitude).
				Msg("Fetching mobility entries")

			service.Store.SetUserLocation(coords, true)
			service.Orchestrator.UpdateMobility(context.Background(), coords).Wait()

			snapshot := service.Store.Snapshot()
			for _, category := range snapshot.Categories {
				if !category.Loaded {
					continue
				}

				pretty.Println(category)
			}
			log.Info().Int("markers", len(snapshot.Markers)).Msg("Built map markers")

			if snapshot.Screen.Status == ScreenStatusError {
				return errors.New(snapshot.Screen.Message)
			}

			return nil
		},
	}
}
