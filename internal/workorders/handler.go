package workorders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/platform/httpx"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

// Handler wires HTTP endpoints for work orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers work order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/prepare", h.handlePrepare)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/approve", h.handleApprove)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if v := q.Get("vendor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor_id")
			return
		}
		filters.VendorID = id
	}
	if v := q.Get("site_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid site_id")
			return
		}
		filters.SiteID = id
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	wos, total, err := h.service.List(r.Context(), perPage, (page-1)*perPage, filters)
	if err != nil {
		h.respondError(w, "list work orders", err)
		return
	}
	views := make([]WOView, 0, len(wos))
	for _, wo := range wos {
		views = append(views, toView(wo))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      views,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	wo, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get work order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(wo))
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
	if fields := validatePercentRanges(req.Lines); fields != nil {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", fields)
		return
	}
	wo, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, "create work order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(wo))
}

func (h *Handler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req PrepareRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	res, err := h.service.PrepareFromIndents(r.Context(), req.IndentIDs)
	if err != nil {
		h.respondError(w, "prepare work order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPrepareView(res))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if fields := validatePercentRanges(req.Lines); fields != nil {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", fields)
		return
	}

	if req.StatusAction != "" {
		input := ApproveInput{WOID: id, ActorID: req.ActorID, Qtys: make(map[int64]decimal.Decimal)}
		switch req.StatusAction {
		case "approve1":
			input.Level = 1
			for _, line := range req.Lines {
				if !line.Approved1Qty.IsZero() {
					input.Qtys[line.ID] = line.Approved1Qty.Decimal
				}
			}
		case "approve2":
			input.Level = 2
			for _, line := range req.Lines {
				if !line.Approved2Qty.IsZero() {
					input.Qtys[line.ID] = line.Approved2Qty.Decimal
				}
			}
		}
		wo, err := h.service.Approve(r.Context(), input)
		if err != nil {
			h.respondError(w, "approve work order", err)
			return
		}
		httpx.JSON(w, http.StatusOK, toView(wo))
		return
	}

	input := UpdateInput{
		DeliveryDate:     req.DeliveryDate,
		Note:             req.Note,
		ActorID:          req.ActorID,
		HandlingCharge:   req.HandlingCharge,
		GSTReverseCharge: req.GSTReverseCharge,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, line.toInput())
	}
	wo, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update work order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(wo))
}

// ApproveRequest is the direct approval endpoint payload.
type ApproveRequest struct {
	Level   int                      `json:"level" validate:"required,oneof=1 2"`
	ActorID int64                    `json:"actor_id" validate:"required,gt=0"`
	Qtys    map[int64]pricing.Number `json:"qtys,omitempty"`
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
	input := ApproveInput{WOID: id, Level: req.Level, ActorID: req.ActorID, Qtys: make(map[int64]decimal.Decimal)}
	for lineID, qty := range req.Qtys {
		input.Qtys[lineID] = qty.Decimal
	}
	wo, err := h.service.Approve(r.Context(), input)
	if err != nil {
		h.respondError(w, "approve work order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(wo))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var limitErr *LimitError
	if errors.As(err, &limitErr) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Limit Exceeded", limitErr.Message)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "work order not found")
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrAllocation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}
