package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Fallback resolves to a default point whenever the wrapped geocoder fails.
// Only context cancellation is passed through.
type Fallback struct {
	next   Geocoder
	point  Coordinates
	logger *zap.Logger
}

// NewFallback wraps next, answering with point on failure
func NewFallback(next Geocoder, point Coordinates, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{next: next, point: point, logger: logger}
}

func (f *Fallback) Geocode(ctx context.Context, address string) (Coordinates, error) {
	coords, err := f.next.Geocode(ctx, address)
	if err == nil {
		return coords, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Coordinates{}, ctxErr
	}

	f.logger.Warn("geocoding failed, using fallback location",
		zap.String("address", address),
		zap.Error(err),
	)
	return f.point, nil
}
