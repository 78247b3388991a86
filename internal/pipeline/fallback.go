package pipeline

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

//go:embed fallback_events.json
var fallbackJSON []byte

// FallbackEvents returns the bundled sample events shown when the catalog
// cannot be reached
func FallbackEvents() ([]store.Event, error) {
	var events []store.Event
	if err := json.Unmarshal(fallbackJSON, &events); err != nil {
		return nil, fmt.Errorf("failed to decode fallback events: %w", err)
	}
	return events, nil
}
