package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMapboxServer(t *testing.T, handler http.HandlerFunc) (*Mapbox, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewMapbox(MapboxOptions{
		BaseURL:   srv.URL,
		Token:     "pk.test",
		RateLimit: 1000,
		Burst:     100,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m, srv
}

func TestMapboxGeocode(t *testing.T) {
	m, _ := newMapboxServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/Alexanderplatz 1, 10178 Berlin.json", r.URL.Path)
		assert.Equal(t, "pk.test", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"features":[{"place_name":"Alexanderplatz","center":[13.4132,52.5219]},{"center":[0,0]}]}`))
	})

	coords, err := m.Geocode(context.Background(), "Alexanderplatz 1, 10178 Berlin")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 52.5219, Longitude: 13.4132}, coords)
}

func TestMapboxGeocodeEscapesSlash(t *testing.T) {
	m, _ := newMapboxServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.RawPath, "%2F"), "slash must be escaped, got %s", r.URL.RawPath)
		_, _ = w.Write([]byte(`{"features":[{"center":[13.4,52.5]}]}`))
	})

	_, err := m.Geocode(context.Background(), "Haus 2/3, Berlin")
	require.NoError(t, err)
}

func TestMapboxGeocodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "No features", status: http.StatusOK, body: `{"features":[]}`, wantErr: ErrNoResults},
		{name: "Short center", status: http.StatusOK, body: `{"features":[{"center":[13.4]}]}`, wantErr: ErrNoResults},
		{name: "Unauthorized", status: http.StatusUnauthorized, body: `{"message":"Not Authorized"}`, wantMsg: "geocoding error: 401"},
		{name: "Rate limited", status: http.StatusTooManyRequests, body: ``, wantMsg: "geocoding error: 429"},
		{name: "Invalid JSON", status: http.StatusOK, body: `nope`, wantMsg: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMapboxServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := m.Geocode(context.Background(), "Somewhere")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNewMapboxRequiresToken(t *testing.T) {
	_, err := NewMapbox(MapboxOptions{}, nil)
	assert.Error(t, err)
}

type countingGeocoder struct {
	calls atomic.Int32
	err   error
	point Coordinates
}

func (c *countingGeocoder) Geocode(ctx context.Context, address string) (Coordinates, error) {
	c.calls.Add(1)
	if c.err != nil {
		return Coordinates{}, c.err
	}
	return c.point, nil
}

func TestCachedGeocoder(t *testing.T) {
	inner := &countingGeocoder{point: Coordinates{Latitude: 1, Longitude: 2}}
	cached := NewCached(inner)

	for _, addr := range []string{"Straße 1 Berlin", "  STRAßE 1   berlin", "straße 1 berlin"} {
		got, err := cached.Geocode(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, inner.point, got)
	}

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedGeocoderSkipsFailures(t *testing.T) {
	inner := &countingGeocoder{err: ErrNoResults}
	cached := NewCached(inner)

	_, err := cached.Geocode(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = cached.Geocode(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrNoResults)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGeocoderConcurrent(t *testing.T) {
	inner := &countingGeocoder{point: BerlinCenter}
	cached := NewCached(inner)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.Geocode(context.Background(), "Berlin")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cached.Len())
	assert.Equal(t, int32(1), inner.calls.Load(), "same address should reach the upstream once")
}

type blockingGeocoder struct {
	countingGeocoder
	started chan struct{}
	release chan struct{}
}

func (b *blockingGeocoder) Geocode(ctx context.Context, address string) (Coordinates, error) {
	b.calls.Add(1)
	close(b.started)
	<-b.release
	return b.point, nil
}

func TestCachedGeocoderSharesInflightLookup(t *testing.T) {
	inner := &blockingGeocoder{
		countingGeocoder: countingGeocoder{point: BerlinCenter},
		started:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	cached := NewCached(inner)

	first := make(chan error, 1)
	go func() {
		_, err := cached.Geocode(context.Background(), "Alexanderplatz 1 Berlin")
		first <- err
	}()
	<-inner.started

	// a waiter that gives up does not disturb the running lookup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cached.Geocode(ctx, "alexanderplatz 1 berlin")
	assert.ErrorIs(t, err, context.Canceled)

	close(inner.release)
	require.NoError(t, <-first)

	got, err := cached.Geocode(context.Background(), "Alexanderplatz 1 Berlin")
	require.NoError(t, err)
	assert.Equal(t, BerlinCenter, got)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestFallbackGeocoder(t *testing.T) {
	f := NewFallback(&countingGeocoder{err: errors.New("boom")}, BerlinCenter, zaptest.NewLogger(t))

	got, err := f.Geocode(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Equal(t, BerlinCenter, got)
}

func TestFallbackGeocoderPassesSuccess(t *testing.T) {
	want := Coordinates{Latitude: 52.1, Longitude: 13.1}
	f := NewFallback(&countingGeocoder{point: want}, BerlinCenter, nil)

	got, err := f.Geocode(context.Background(), "Known")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFallbackGeocoderHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFallback(&countingGeocoder{err: context.Canceled}, BerlinCenter, nil)
	_, err := f.Geocode(ctx, "Anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticGeocoder(t *testing.T) {
	got, err := Static{Point: BerlinCenter}.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, BerlinCenter, got)
}
