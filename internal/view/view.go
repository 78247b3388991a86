// Package view models the user-driven state of the table and map views:
// search term, row selection, map viewport, detail dialog and paging.
package view

import (
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

const (
	DefaultLatitude  = 52.52
	DefaultLongitude = 13.405
	DefaultZoom      = 10
	SelectedZoom     = 14
	DefaultPageSize  = 10
)

// PageSizes lists the page sizes offered by the table
var PageSizes = []int{10, 25, 50, 100}

// Viewport is the visible map region
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
}

// DefaultViewport centers on Berlin
func DefaultViewport() Viewport {
	return Viewport{
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
		Zoom:      DefaultZoom,
	}
}

// Dialog tracks the event detail dialog
type Dialog struct {
	ID   *int `json:"id"`
	Open bool `json:"open"`
}

// State is the complete view state of one client
type State struct {
	Search     string   `json:"search"`
	SelectedID *int     `json:"selected_id"`
	Viewport   Viewport `json:"viewport"`
	Dialog     Dialog   `json:"dialog"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// NewState returns the initial state of a fresh page load
func NewState() State {
	return State{
		Viewport: DefaultViewport(),
		PageSize: DefaultPageSize,
	}
}

// Lookup resolves event ids
type Lookup interface {
	Get(id int) (store.Event, bool)
}

// SelectRow marks a table row as selected and centers the map on it.
// Unknown ids are selected but leave the viewport untouched.
func SelectRow(s State, id int, events Lookup) State {
	s.SelectedID = &id
	if e, ok := events.Get(id); ok {
		s.Viewport = Viewport{
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Zoom:      SelectedZoom,
		}
	}
	return s
}

// OpenEvent opens the detail dialog for id
func OpenEvent(s State, id int) State {
	s.Dialog = Dialog{ID: &id, Open: true}
	return s
}

// CloseEvent closes the detail dialog
func CloseEvent(s State) State {
	s.Dialog = Dialog{}
	return s
}

// SetSearch changes the search term and returns to the first page
func SetSearch(s State, term string) State {
	if term != s.Search {
		s.Page = 0
	}
	s.Search = term
	return s
}

// DialogEvent returns the event the dialog shows. The dialog is only
// shown when it is open and its id resolves to a stored event.
func DialogEvent(s State, events Lookup) (store.Event, bool) {
	if !s.Dialog.Open || s.Dialog.ID == nil {
		return store.Event{}, false
	}
	return events.Get(*s.Dialog.ID)
}

// NormalizePageSize maps unsupported sizes to the default
func NormalizePageSize(n int) int {
	for _, size := range PageSizes {
		if n == size {
			return n
		}
	}
	return DefaultPageSize
}
