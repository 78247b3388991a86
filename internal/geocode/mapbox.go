package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMapboxURL = "https://api.mapbox.com"
	DefaultTimeout   = 10 * time.Second

	// Mapbox allows 600 requests per minute on the free tier
	DefaultRateLimit = 10.0
	DefaultBurst     = 5
)

// MapboxOptions configures the Mapbox geocoder
type MapboxOptions struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// Mapbox queries the Mapbox places geocoding API
type Mapbox struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewMapbox creates a Mapbox geocoder. A token is required.
func NewMapbox(opts MapboxOptions, logger *zap.Logger) (*Mapbox, error) {
	if opts.Token == "" {
		return nil, errors.New("mapbox access token is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultMapboxURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Mapbox{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		logger:  logger,
	}, nil
}

type placesResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

// Geocode resolves an address using the first feature's center ([lon, lat])
func (m *Mapbox) Geocode(ctx context.Context, address string) (Coordinates, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return Coordinates{}, err
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?access_token=%s",
		m.baseURL,
		url.PathEscape(address),
		url.QueryEscape(m.token),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to read geocoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocoding error: %d", resp.StatusCode)
	}

	var places placesResponse
	if err := json.Unmarshal(body, &places); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	if len(places.Features) == 0 || len(places.Features[0].Center) < 2 {
		return Coordinates{}, ErrNoResults
	}

	center := places.Features[0].Center
	m.logger.Debug("address geocoded",
		zap.String("address", address),
		zap.String("place", places.Features[0].PlaceName),
	)
	return Coordinates{Latitude: center[1], Longitude: center[0]}, nil
}
