// Package pipeline turns the remote course catalog into the geocoded event
// set served by the views: fetch, filter, geocode, store.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/catalog"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/geocode"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

const DefaultConcurrency = 4

// Fetcher retrieves the raw course list
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Course, error)
}

// Options tunes a Pipeline
type Options struct {
	Filter      catalog.FilterOptions
	Concurrency int
	Now         func() time.Time
}

// Pipeline refreshes a store from the catalog
type Pipeline struct {
	fetcher     Fetcher
	geocoder    geocode.Geocoder
	store       *store.Store
	filter      catalog.FilterOptions
	concurrency int
	now         func() time.Time
	logger      *zap.Logger

	mu      sync.Mutex
	pending atomic.Bool
}

// New creates a pipeline. Geocoding failures resolve to the Berlin center.
func New(fetcher Fetcher, geocoder geocode.Geocoder, events *store.Store, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		fetcher:     fetcher,
		geocoder:    geocode.NewFallback(geocoder, geocode.BerlinCenter, logger),
		store:       events,
		filter:      opts.Filter,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		logger:      logger,
	}
}

// Store returns the store the pipeline writes to
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Refresh fetches, filters and geocodes the catalog and replaces the store.
// When the catalog is unreachable and no live data is present, the embedded
// fallback events are loaded and the fetch error is returned.
func (p *Pipeline) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

// EnsureLoaded refreshes only if the store holds no events yet
func (p *Pipeline) EnsureLoaded(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store.Len() > 0 {
		return nil
	}
	return p.refreshLocked(ctx)
}

// TriggerLoad starts EnsureLoaded in the background unless the store was
// already loaded once or a load is pending. It reports whether a load was started.
func (p *Pipeline) TriggerLoad(ctx context.Context) bool {
	if p.store.Status().Loaded || !p.pending.CompareAndSwap(false, true) {
		return false
	}
	p.store.BeginLoading()

	go func() {
		defer p.pending.Store(false)
		defer p.store.EndLoading()
		if err := p.EnsureLoaded(ctx); err != nil {
			p.logger.Warn("background load failed", zap.Error(err))
		}
	}()
	return true
}

// Run refreshes on every tick until ctx is done
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("starting refresh scheduler", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			p.logger.Info("refreshing events from catalog")
			if err := p.Refresh(ctx); err != nil {
				p.logger.Error("error refreshing events", zap.Error(err))
			} else {
				p.logger.Info("events refreshed", zap.Int("count", p.store.Len()))
			}
		}
	}
}

func (p *Pipeline) refreshLocked(ctx context.Context) error {
	p.store.BeginLoading()
	defer p.store.EndLoading()

	started := time.Now()
	courses, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.store.SetError(err)

		if p.store.Source() == store.SourceLive && p.store.Len() > 0 {
			p.logger.Error("catalog fetch failed, keeping previous events", zap.Error(err))
			return fmt.Errorf("catalog fetch failed: %w", err)
		}

		p.logger.Error("catalog fetch failed, loading fallback events", zap.Error(err))
		fallback, fbErr := FallbackEvents()
		if fbErr != nil {
			return fmt.Errorf("catalog fetch failed: %w (fallback: %v)", err, fbErr)
		}
		p.store.Replace(fallback, store.SourceFallback)
		return fmt.Errorf("catalog fetch failed, using fallback events: %w", err)
	}

	prepared := catalog.Prepare(courses, p.now(), p.filter)
	p.logger.Info("catalog filtered",
		zap.Int("fetched", len(courses)),
		zap.Int("kept", len(prepared)),
	)

	events, err := p.geocodeAll(ctx, prepared)
	if err != nil {
		return fmt.Errorf("geocoding aborted: %w", err)
	}

	p.store.Replace(events, store.SourceLive)
	p.logger.Info("event store updated",
		zap.Int("events", len(events)),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// geocodeAll resolves every course concurrently, preserving order
func (p *Pipeline) geocodeAll(ctx context.Context, courses []catalog.Course) ([]store.Event, error) {
	events := make([]store.Event, len(courses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, c := range courses {
		i, c := i, c
		g.Go(func() error {
			coords, err := p.geocoder.Geocode(gctx, c.VaAdresse)
			if err != nil {
				return err
			}
			events[i] = store.Event{
				ID:        int(c.ID),
				Latitude:  coords.Latitude,
				Longitude: coords.Longitude,
				EventInfo: c,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}
