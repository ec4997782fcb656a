// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/user"
)

const statsTimeout = 5 * time.Second

// Backend is a pingable dependency that can describe its own pool.
type Backend interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (any, error)
}

type UserCounter interface {
	CountUsers(ctx context.Context, role string) (int, error)
}

type BlogCounter interface {
	CountBlogs(ctx context.Context, publishedOnly bool) (int, error)
}

type HandlerConfig struct {
	Store       Backend
	StoreDriver string
	Redis       Backend
	Users       UserCounter
	Blogs       BlogCounter
	Logger      *slog.Logger
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.GetSystemStats)
		r.Get("/db", h.GetDatabaseStats)
		r.Get("/redis", h.GetRedisStats)
		r.Get("/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		store    BackendStatus
		cache    BackendStatus
		content  ContentStats
		runStats = readRuntime()
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		store = h.describe(ctx, h.cfg.StoreDriver, h.cfg.Store)
	}()
	go func() {
		defer wg.Done()
		cache = h.describe(ctx, "redis", h.cfg.Redis)
	}()
	go func() {
		defer wg.Done()
		content = h.countContent(ctx)
	}()
	wg.Wait()

	core.OK(w, SystemStatsResponse{
		Database: store,
		Redis:    cache,
		Content:  content,
		Runtime:  runStats,
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	core.OK(w, h.describe(ctx, h.cfg.StoreDriver, h.cfg.Store))
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	core.OK(w, h.describe(ctx, "redis", h.cfg.Redis))
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntime())
}

func (h *Handler) describe(ctx context.Context, name string, b Backend) BackendStatus {
	status := BackendStatus{Name: name}
	if b == nil {
		return status
	}

	start := time.Now()
	err := b.Ping(ctx)
	status.Latency = time.Since(start).String()
	status.Healthy = err == nil

	if err != nil {
		h.cfg.Logger.WarnContext(ctx, "backend ping failed", "backend", name, "error", err)
		return status
	}

	stats, err := b.Stats(ctx)
	if err != nil {
		h.cfg.Logger.WarnContext(ctx, "backend stats failed", "backend", name, "error", err)
	}
	status.Stats = stats

	return status
}

func (h *Handler) countContent(ctx context.Context) ContentStats {
	var stats ContentStats

	count := func(name string, fn func() (int, error)) int {
		n, err := fn()
		if err != nil {
			h.cfg.Logger.WarnContext(ctx, "content count failed", "count", name, "error", err)
		}
		return n
	}

	if h.cfg.Users != nil {
		stats.Users = count("users", func() (int, error) {
			return h.cfg.Users.CountUsers(ctx, "")
		})
		stats.Admins = count("admins", func() (int, error) {
			return h.cfg.Users.CountUsers(ctx, user.RoleAdmin)
		})
	}

	if h.cfg.Blogs != nil {
		stats.Blogs = count("blogs", func() (int, error) {
			return h.cfg.Blogs.CountBlogs(ctx, false)
		})
		stats.PublishedBlogs = count("published_blogs", func() (int, error) {
			return h.cfg.Blogs.CountBlogs(ctx, true)
		})
	}

	return stats
}

func readRuntime() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

type SystemStatsResponse struct {
	Database BackendStatus `json:"database"`
	Redis    BackendStatus `json:"redis"`
	Content  ContentStats  `json:"content"`
	Runtime  RuntimeStats  `json:"runtime"`
}

type BackendStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Stats   any    `json:"stats,omitempty"`
}

type ContentStats struct {
	Users          int `json:"users"`
	Admins         int `json:"admins"`
	Blogs          int `json:"blogs"`
	PublishedBlogs int `json:"published_blogs"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
