// AngelaMos | 2026
// handler.go

package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/middleware"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type listFunc func(
	ctx context.Context,
	params ListParams,
	viewer tier.Tier,
) ([]ItemSummary, int, error)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/content", func(r chi.Router) {
		r.Use(optionalAuth)

		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/{contentID}", h.Get)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/content", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.Create)
		r.Put("/{contentID}", h.Update)
	})
}

// List returns one page of the catalog, optionally narrowed to a category
// prefix given as repeated ?category= values.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.List)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.Search)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch listFunc) {
	viewer, err := h.service.ViewerTier(
		r.Context(),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	query := r.URL.Query()
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Category: query["category"],
		Query:    query.Get("q"),
	}

	items, total, err := fetch(r.Context(), params, viewer)
	if err != nil {
		h.writeError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(w, items, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.service.ViewerTier(
		r.Context(),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	item, decision, err := h.service.ViewDetail(
		r.Context(),
		chi.URLParam(r, "contentID"),
		viewer,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !decision.Allowed() {
		core.JSONError(w, core.NewAppError(
			core.ErrForbidden,
			"this article requires a higher subscription tier",
			http.StatusForbidden,
			"INSUFFICIENT_TIER",
		).WithDetails(ToDeniedDetails(item, decision)))
		return
	}

	core.OK(w, ToItemDetail(item, decision))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	item, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, ToItemDetail(item, ResolveView(item, tier.Premium)))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	item, err := h.service.Update(r.Context(), chi.URLParam(r, "contentID"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToItemDetail(item, ResolveView(item, tier.Premium)))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "content")
	case errors.Is(err, tier.ErrUnknown):
		core.JSONError(w, core.NewAppError(
			err,
			"unknown tier",
			http.StatusBadRequest,
			"UNKNOWN_TIER",
		))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "search query is required")
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
