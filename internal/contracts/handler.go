// internal/contracts/handler.go
package contracts

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warranty/internal/eventstore"
	"warranty/internal/logger"
	"warranty/internal/warranty"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(service Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log.With("component", "http"),
	}
}

// Routes mounts the contract endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/contracts", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/status", h.HandleChangeStatus)
			r.Post("/claims", h.HandleFileClaim)
			r.Post("/extend", h.HandleExtend)
			r.Get("/coverage", h.HandleCoverage)
			r.Get("/events", h.HandleEvents)
		})
	})
	return r
}

type productRequest struct {
	Name         string `json:"name" validate:"required"`
	ID           string `json:"id" validate:"required"`
	Manufacturer string `json:"manufacturer" validate:"required"`
	ModelNumber  string `json:"model_number" validate:"required"`
}

type termsRequest struct {
	PurchaseDate              string          `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	CoverageStartDate         string          `json:"coverage_start_date" validate:"required,datetime=2006-01-02"`
	CoverageEndDate           string          `json:"coverage_end_date" validate:"required,datetime=2006-01-02"`
	LiabilityPercentThreshold decimal.Decimal `json:"liability_percent_threshold"`
}

type registerRequest struct {
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Product       productRequest  `json:"product"`
	Terms         termsRequest    `json:"terms"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type claimRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	DateFiled string          `json:"date_filed" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Formats were checked by the validator.
	purchase, _ := time.Parse(time.DateOnly, req.Terms.PurchaseDate)
	start, _ := time.Parse(time.DateOnly, req.Terms.CoverageStartDate)
	end, _ := time.Parse(time.DateOnly, req.Terms.CoverageEndDate)

	terms, err := warranty.NewTermsAndConditions(purchase, start, end, req.Terms.LiabilityPercentThreshold)
	if err != nil {
		h.writeError(w, err)
		return
	}
	product := warranty.NewProduct(req.Product.Name, req.Product.ID, req.Product.Manufacturer, req.Product.ModelNumber)

	contract, err := h.service.RegisterContract(r.Context(), req.PurchasePrice, product, terms)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewContractView(contract))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	contract, err := h.service.GetContract(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewContractView(contract))
}

func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}

	contract, err := h.service.ChangeStatus(r.Context(), id, warranty.Status(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewContractView(contract))
}

func (h *Handler) HandleFileClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}

	var filed time.Time
	if req.DateFiled != "" {
		filed, _ = time.Parse(time.DateOnly, req.DateFiled)
	}

	contract, err := h.service.FileClaim(r.Context(), id, req.Amount, filed)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewContractView(contract))
}

func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	contract, err := h.service.ExtendSubscription(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewContractView(contract))
}

func (h *Handler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	var date time.Time
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.Parse(time.DateOnly, q)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = d
	}

	coverage, err := h.service.CheckCoverage(r.Context(), id, date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, coverage)
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if events == nil {
		events = []eventstore.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) contractID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid contract ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, warranty.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ErrContractNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotInEffect), errors.Is(err, ErrExceedsLiability):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, ErrContractExists), errors.Is(err, eventstore.ErrConcurrencyConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
