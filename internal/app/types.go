package app

import (
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/view"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConfigResponse describes the client defaults
type ConfigResponse struct {
	Viewport        view.Viewport     `json:"viewport"`
	SelectedZoom    float64           `json:"selectedZoom"`
	PageSize        int               `json:"pageSize"`
	PageSizes       []int             `json:"pageSizes"`
	CurrentYear     int               `json:"currentYear"`
	Holidays        map[string]string `json:"holidays"`
	RefreshEnabled  bool              `json:"refreshEnabled"`
	SubscriptionURL string            `json:"subscriptionUrl"`
}

// EventsResponse carries the map markers
type EventsResponse struct {
	Loading bool          `json:"loading"`
	Source  store.Source  `json:"source"`
	Events  []store.Event `json:"events"`
}

// ViewResponse is one rendered table/map state
type ViewResponse struct {
	Loading    bool          `json:"loading"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	PageCount  int           `json:"page_count"`
	Search     string        `json:"search"`
	Rows       []view.Row    `json:"rows"`
	Viewport   view.Viewport `json:"viewport"`
	SelectedID *int          `json:"selected_id"`
	Dialog     *DialogInfo   `json:"dialog"`
}

// DialogInfo is the content of the event detail dialog
type DialogInfo struct {
	ID         int         `json:"id"`
	Event      store.Event `json:"event"`
	StartLabel string      `json:"start_label"`
	EndLabel   string      `json:"end_label"`
}

// ExportDocument is the JSON download body
type ExportDocument struct {
	Search      string        `json:"search,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Count       int           `json:"count"`
	Events      []store.Event `json:"events"`
}
