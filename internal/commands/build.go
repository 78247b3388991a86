package commands

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/catalog"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/config"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/geocode"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/pipeline"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

// newGeocoder picks the geocoder from the config. Without a Mapbox token
// every address resolves to the Berlin center.
func newGeocoder(cfg config.GeocoderConfig, logger *zap.Logger) (geocode.Geocoder, error) {
	if cfg.Provider == "static" {
		return geocode.Static{Point: geocode.BerlinCenter}, nil
	}
	if cfg.Token == "" {
		logger.Warn("no Mapbox token configured, all events are placed at the Berlin center",
			zap.String("hint", "set MAPBOX_TOKEN"),
		)
		return geocode.Static{Point: geocode.BerlinCenter}, nil
	}

	mapbox, err := geocode.NewMapbox(geocode.MapboxOptions{
		BaseURL:   cfg.BaseURL,
		Token:     cfg.Token,
		Timeout:   cfg.Timeout.Std(),
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	}, logger.Named("mapbox"))
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder: %w", err)
	}
	return geocode.NewCached(mapbox), nil
}

// newPipeline wires catalog client, geocoder and a fresh store
func newPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, *catalog.Client, error) {
	client := catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.Timeout.Std(), logger.Named("catalog"))

	geocoder, err := newGeocoder(cfg.Geocoder, logger)
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(client, geocoder, store.New(), pipeline.Options{
		Filter: catalog.FilterOptions{
			City:         cfg.Filter.City,
			HorizonYears: cfg.Filter.HorizonYears,
		},
		Concurrency: cfg.Geocoder.Concurrency,
	}, logger.Named("pipeline"))
	return p, client, nil
}
