package stock

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sitechain-erp/sitechain-erp/internal/platform/httpx"
)

// Handler exposes the closing stock lookup used by the order forms.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stock routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/closing", h.handleClosing)
}

func (h *Handler) handleClosing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	siteID, err := strconv.ParseInt(q.Get("site_id"), 10, 64)
	if err != nil || siteID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid site_id")
		return
	}
	var itemIDs []int64
	for _, raw := range strings.Split(q.Get("item_ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item_ids")
			return
		}
		itemIDs = append(itemIDs, id)
	}

	quantities, err := h.service.Closing(r.Context(), siteID, itemIDs)
	if err != nil {
		h.logger.Error("closing stock", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
		return
	}
	out := make(map[string]string, len(quantities))
	for id, qty := range quantities {
		out[strconv.FormatInt(id, 10)] = qty.String()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"site_id": siteID, "quantities": out})
}
