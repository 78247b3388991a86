package app

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/view"
)

// ServeIndex serves the SPA shell
func (s *Server) ServeIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.index)
}

// HandleBerlinCourses proxies the upstream catalog unchanged
func (s *Server) HandleBerlinCourses(c *gin.Context) {
	body, err := s.catalog.FetchRaw(c.Request.Context())
	if err != nil {
		s.logger.Error("catalog proxy failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, fmt.Sprintf("%s: %v", ErrCatalogUnavailable, err))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GetConfig returns the client defaults
func (s *Server) GetConfig(c *gin.Context) {
	year := s.now().Year()
	c.JSON(http.StatusOK, ConfigResponse{
		Viewport:        view.DefaultViewport(),
		SelectedZoom:    view.SelectedZoom,
		PageSize:        view.DefaultPageSize,
		PageSizes:       view.PageSizes,
		CurrentYear:     year,
		Holidays:        s.holidays.Range(year, year+1),
		RefreshEnabled:  s.auth.Enabled(),
		SubscriptionURL: "/api/subscribe.ics",
	})
}

// HandleStatus returns the store status
func (s *Server) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.events.Status())
}

// HandleEvents returns all events for the map and starts the initial
// load if nothing was loaded yet
func (s *Server) HandleEvents(c *gin.Context) {
	s.loader.TriggerLoad(s.baseCtx)
	status := s.events.Status()
	c.JSON(http.StatusOK, EventsResponse{
		Loading: status.Loading,
		Source:  status.Source,
		Events:  s.events.All(),
	})
}

// HandleEvent returns one event
// URL: /api/events/{id}
func (s *Server) HandleEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrInvalidID)
		return
	}
	e, ok := s.events.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, ErrEventNotFound)
		return
	}
	c.JSON(http.StatusOK, e)
}

// HandleView renders the table and map state for the given query
// Query params: q, page (zero-based), page_size, selected, open
func (s *Server) HandleView(c *gin.Context) {
	s.loader.TriggerLoad(s.baseCtx)

	state := view.SetSearch(view.NewState(), c.Query("q"))

	page, _, ok := queryInt(c, "page")
	if !ok || page < 0 {
		respondError(c, http.StatusBadRequest, ErrInvalidPage)
		return
	}
	size, _, ok := queryInt(c, "page_size")
	if !ok {
		respondError(c, http.StatusBadRequest, ErrInvalidPage)
		return
	}
	state.PageSize = view.NormalizePageSize(size)

	selected, hasSelected, ok := queryInt(c, "selected")
	if !ok {
		respondError(c, http.StatusBadRequest, ErrInvalidID)
		return
	}
	if hasSelected {
		state = view.SelectRow(state, selected, s.events)
	}

	open, hasOpen, ok := queryInt(c, "open")
	if !ok {
		respondError(c, http.StatusBadRequest, ErrInvalidID)
		return
	}
	if hasOpen {
		state = view.OpenEvent(state, open)
	}

	matched := s.events.Search(state.Search)
	pageCount := (len(matched) + state.PageSize - 1) / state.PageSize
	if pageCount > 0 && page >= pageCount {
		page = pageCount - 1
	}
	state.Page = page

	resp := ViewResponse{
		Loading:    s.events.Status().Loading,
		Total:      len(matched),
		Page:       state.Page,
		PageSize:   state.PageSize,
		PageCount:  pageCount,
		Search:     state.Search,
		Rows:       view.Rows(store.Page(matched, state.Page, state.PageSize), state, s.holidays.Lookup),
		Viewport:   state.Viewport,
		SelectedID: state.SelectedID,
	}
	if e, ok := view.DialogEvent(state, s.events); ok {
		resp.Dialog = &DialogInfo{
			ID:         e.ID,
			Event:      e,
			StartLabel: view.FormatDate(e.EventInfo.DatumBeginn),
			EndLabel:   view.FormatDate(e.EventInfo.DatumEnde),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDownload exports the search result as ICS, CSV or JSON
// Query params: format, q, reminderDays, reminderTime (ICS only)
func (s *Server) HandleDownload(c *gin.Context) {
	format := c.Query("format")
	search := c.Query("q")
	events := s.events.Search(search)
	now := s.now()

	var (
		buf         bytes.Buffer
		contentType string
		err         error
		failure     string
	)
	switch format {
	case FormatICS:
		opts := ICSOptions{Now: now}
		if days, present, ok := queryInt(c, "reminderDays"); ok && present {
			opts.Reminders = append(opts.Reminders, Reminder{DaysBefore: days, At: c.DefaultQuery("reminderTime", "09:00")})
		}
		contentType, failure = "text/calendar; charset=utf-8", ErrFailedToGenerateICS
		err = WriteICS(&buf, events, opts)
	case FormatCSV:
		contentType, failure = "text/csv; charset=utf-8", ErrFailedToGenerateCSV
		err = WriteCSV(&buf, events)
	case FormatJSON:
		contentType, failure = "application/json; charset=utf-8", ErrFailedToGenerateJSON
		err = WriteJSON(&buf, search, events, now)
	default:
		respondError(c, http.StatusBadRequest, ErrInvalidFormat)
		return
	}
	if err != nil {
		s.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		respondError(c, http.StatusInternalServerError, failure)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportFilename(format, now))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// HandleSubscribe serves the subscription feed of all events
func (s *Server) HandleSubscribe(c *gin.Context) {
	var buf bytes.Buffer
	err := WriteICS(&buf, store.SortByStart(s.events.All()), ICSOptions{
		Publish: true,
		Now:     s.now(),
	})
	if err != nil {
		s.logger.Error("subscription feed failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, ErrFailedToGenerateICS)
		return
	}
	// inline content, calendar apps reject attachments for subscriptions
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// HandleRefresh reloads the catalog (operator only)
func (s *Server) HandleRefresh(c *gin.Context) {
	if err := s.loader.Refresh(c.Request.Context()); err != nil {
		s.logger.Error("manual refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  fmt.Sprintf("%s: %v", ErrRefreshFailed, err),
			"status": s.events.Status(),
		})
		return
	}
	c.JSON(http.StatusOK, s.events.Status())
}
