// Package app serves the Bildungszeit single-page application and its JSON API.
package app

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

// Loader keeps the event store filled
type Loader interface {
	Store() *store.Store
	Refresh(ctx context.Context) error
	TriggerLoad(ctx context.Context) bool
}

// RawCatalog returns the upstream catalog document unchanged
type RawCatalog interface {
	FetchRaw(ctx context.Context) ([]byte, error)
}

// Options wires a Server
type Options struct {
	Loader  Loader
	Catalog RawCatalog
	Auth    *Authenticator
	Index   []byte // SPA shell
	Static  fs.FS  // assets below /static, may be nil
	Logger  *zap.Logger

	// Context bounds background loads started by requests
	Context context.Context
	Now     func() time.Time
}

// Server holds the HTTP handlers
type Server struct {
	loader   Loader
	events   *store.Store
	catalog  RawCatalog
	auth     *Authenticator
	index    []byte
	static   fs.FS
	holidays *HolidayCalendar
	logger   *zap.Logger
	baseCtx  context.Context
	now      func() time.Time
}

// NewServer creates a server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		loader:   opts.Loader,
		events:   opts.Loader.Store(),
		catalog:  opts.Catalog,
		auth:     opts.Auth,
		index:    opts.Index,
		static:   opts.Static,
		holidays: NewHolidayCalendar(),
		logger:   opts.Logger,
		baseCtx:  opts.Context,
		now:      opts.Now,
	}
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	for _, route := range SPARoutes {
		r.GET(route, s.ServeIndex)
	}
	if s.static != nil {
		r.StaticFS("/static", http.FS(s.static))
	}

	api := r.Group("/api")
	{
		api.GET("/berlin-courses", s.HandleBerlinCourses)
		api.GET("/config", s.GetConfig)
		api.GET("/status", s.HandleStatus)
		api.GET("/events", s.HandleEvents)
		api.GET("/events/:id", s.HandleEvent)
		api.GET("/view", s.HandleView)
		api.GET("/download", s.HandleDownload)
		api.GET("/subscribe.ics", s.HandleSubscribe)
		api.POST("/refresh", s.auth.Middleware(), s.HandleRefresh)
	}

	r.NoRoute(s.handleNoRoute)
	return r
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if c.Request.Method != http.MethodGet || isAPIPath(c.Request.URL.Path) {
		respondError(c, http.StatusNotFound, "Not found")
		return
	}
	s.ServeIndex(c)
}
