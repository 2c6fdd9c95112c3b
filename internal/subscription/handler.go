// AngelaMos | 2026
// handler.go

package subscription

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/middleware"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the plan catalog and the purchase endpoints.
// purchaseLimit, when non-nil, guards only the purchase POSTs.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, purchaseLimit func(http.Handler) http.Handler,
) {
	r.Get("/plans", h.ListPlans)

	r.Route("/subscriptions", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMine)

		r.Group(func(r chi.Router) {
			if purchaseLimit != nil {
				r.Use(purchaseLimit)
			}
			r.Post("/timed/{tier}", h.PurchaseTimed)
			r.Post("/lifetime/{tier}", h.PurchaseLifetime)
		})
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, PlansResponse{Plans: plans})
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(
		r.Context(),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, status)
}

func (h *Handler) PurchaseTimed(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.PurchaseTimed(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "tier"),
	)
	h.writePurchase(w, u, err)
}

func (h *Handler) PurchaseLifetime(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.PurchaseLifetimeBonus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "tier"),
	)
	h.writePurchase(w, u, err)
}

func (h *Handler) writePurchase(w http.ResponseWriter, u *user.User, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, h.service.StatusOf(u))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownTier):
		core.JSONError(w, core.NewAppError(
			err,
			"unknown or unpurchasable tier",
			http.StatusBadRequest,
			"UNKNOWN_TIER",
		))
	case errors.Is(err, ErrBonusExhausted):
		core.JSONError(w, core.NewAppError(
			err,
			"no lifetime bonus left for this tier",
			http.StatusConflict,
			"BONUS_EXHAUSTED",
		))
	case errors.Is(err, ErrAdminPinned):
		core.JSONError(w, core.NewAppError(
			err,
			"administrators already hold every tier",
			http.StatusConflict,
			"ADMIN_PINNED",
		))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}
