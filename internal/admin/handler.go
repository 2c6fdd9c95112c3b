// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/uznavaykin/internal/content"
	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/events"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

type UserStats interface {
	Stats(ctx context.Context) (*user.Stats, error)
}

type ContentStats interface {
	Stats(ctx context.Context) (*content.Stats, error)
}

type OnlineCounter interface {
	CountOnline(ctx context.Context) (int, error)
}

// HandlerConfig wires the stat sources. Any of them may be nil; the
// matching section is then omitted.
type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Users      UserStats
	Content    ContentStats
	Online     OnlineCounter
	// EventsStats and EventsPing are nil when purchase events are disabled.
	EventsStats func() events.Stats
	EventsPing  func(ctx context.Context) error
}

type Handler struct {
	src HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{src: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator, adminOnly)

		r.Get("/", h.GetSystemStats)
		r.Get("/db", h.GetDatabaseStats)
		r.Get("/redis", h.GetRedisStats)
		r.Get("/runtime", h.GetRuntimeStats)
		r.Get("/domain", h.GetDomainStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: probe(r.Context(), h.src.DBPing),
			Stats:   dbPoolStats(h.src.DBStats),
		},
		Redis: RedisStatus{
			Healthy: probe(r.Context(), h.src.RedisPing),
			Stats:   redisPoolStats(h.src.RedisStats),
		},
		Events:  eventsStatus(r.Context(), h.src.EventsPing),
		Runtime: readRuntimeStats(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, dbPoolStats(h.src.DBStats))
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, redisPoolStats(h.src.RedisStats))
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

// GetDomainStats reports users, content and purchase event counters.
func (h *Handler) GetDomainStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.domainStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, resp)
}

func (h *Handler) domainStats(ctx context.Context) (*DomainStatsResponse, error) {
	var resp DomainStatsResponse
	var err error

	if h.src.Users != nil {
		if resp.Users, err = h.src.Users.Stats(ctx); err != nil {
			return nil, err
		}
	}
	if h.src.Online != nil {
		if resp.Online, err = h.src.Online.CountOnline(ctx); err != nil {
			return nil, err
		}
	}
	if h.src.Content != nil {
		if resp.Content, err = h.src.Content.Stats(ctx); err != nil {
			return nil, err
		}
	}
	if h.src.EventsStats != nil {
		published := h.src.EventsStats()
		resp.Events = &published
	}

	return &resp, nil
}
