package indents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for indents.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers indent routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleBulkGet)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/submit", h.handleSubmit)
	r.Post("/{id}/approve", h.handleApprove)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		Number:       req.Number,
		SiteID:       req.SiteID,
		Date:         req.Date,
		DeliveryDate: req.DeliveryDate,
		Note:         req.Note,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ItemID: line.ItemID, Qty: line.Qty.Decimal, Remark: line.Remark})
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create indent", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(created))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	ind, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get indent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(ind))
}

// handleBulkGet serves the order forms that merge several indents at once:
// GET /indents?ids=1,2,3.
func (h *Handler) handleBulkGet(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "ids query parameter required")
		return
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ids list")
			return
		}
		ids = append(ids, id)
	}
	loaded, err := h.service.ListByIDs(r.Context(), ids)
	if err != nil {
		h.respondError(w, "bulk get indents", err)
		return
	}
	views := make([]IndentView, 0, len(loaded))
	for _, ind := range loaded {
		views = append(views, toView(ind))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"indents": views})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Submit(r.Context(), id, req.ActorID); err != nil {
		h.respondError(w, "submit indent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	qtys := make(map[int64]decimal.Decimal, len(req.Qtys))
	for lineID, qty := range req.Qtys {
		qtys[lineID] = qty.Decimal
	}
	err = h.service.Approve(r.Context(), ApproveInput{IndentID: id, Level: req.Level, ActorID: req.ActorID, Qtys: qtys})
	if err != nil {
		h.respondError(w, "approve indent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
