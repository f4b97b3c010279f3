package cashbooks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sitechain-erp/sitechain-erp/internal/platform/httpx"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// Handler wires HTTP endpoints for cashbooks.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cashbook routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/entries", h.handleEntries)
	r.Post("/{id}/entries", h.handleRecord)
}

// CreateRequest opens a cashbook.
type CreateRequest struct {
	SiteID int64  `json:"site_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required"`
}

// EntryRequest records one movement.
type EntryRequest struct {
	Kind      EntryKind      `json:"kind" validate:"required,oneof=DEBIT CREDIT"`
	Amount    pricing.Number `json:"amount"`
	Narration string         `json:"narration"`
	EntryDate time.Time      `json:"entry_date"`
}

// BookView is the JSON shape of a cashbook.
type BookView struct {
	ID      int64          `json:"id"`
	SiteID  int64          `json:"site_id"`
	Name    string         `json:"name"`
	Balance pricing.Number `json:"balance"`
}

// EntryView is the JSON shape of one movement.
type EntryView struct {
	ID        int64          `json:"id"`
	Kind      EntryKind      `json:"kind"`
	Amount    pricing.Number `json:"amount"`
	Balance   pricing.Number `json:"balance"`
	Narration string         `json:"narration,omitempty"`
	EntryDate time.Time      `json:"entry_date"`
}

func bookView(book Cashbook) BookView {
	return BookView{ID: book.ID, SiteID: book.SiteID, Name: book.Name, Balance: pricing.NewNumber(book.Balance)}
}

func entryView(entry Entry) EntryView {
	return EntryView{
		ID:        entry.ID,
		Kind:      entry.Kind,
		Amount:    pricing.NewNumber(entry.Amount),
		Balance:   pricing.NewNumber(entry.Balance),
		Narration: entry.Narration,
		EntryDate: entry.EntryDate,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var siteID int64
	if v := r.URL.Query().Get("site_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid site_id")
			return
		}
		siteID = id
	}
	books, err := h.service.List(r.Context(), siteID)
	if err != nil {
		h.respondError(w, "list cashbooks", err)
		return
	}
	views := make([]BookView, 0, len(books))
	for _, book := range books {
		views = append(views, bookView(book))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
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
	book, err := h.service.Create(r.Context(), req.SiteID, req.Name)
	if err != nil {
		h.respondError(w, "create cashbook", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bookView(book))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get cashbook", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bookView(book))
}

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	entries, total, err := h.service.Entries(r.Context(), id, limit, offset)
	if err != nil {
		h.respondError(w, "list cashbook entries", err)
		return
	}
	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, entryView(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views, "total": total})
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req EntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Record(r.Context(), RecordInput{
		CashbookID:     id,
		Kind:           req.Kind,
		Amount:         req.Amount.Decimal,
		Narration:      req.Narration,
		EntryDate:      req.EntryDate,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(w, "record cashbook entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entryView(entry))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "cashbook not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}
