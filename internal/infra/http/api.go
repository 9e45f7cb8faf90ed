package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hartline-electric/backoffice/internal/domain/conversion"
	"github.com/hartline-electric/backoffice/internal/domain/costing"
	"github.com/hartline-electric/backoffice/internal/domain/difficulty"
	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
	"github.com/hartline-electric/backoffice/internal/domain/materials"
	"github.com/hartline-electric/backoffice/internal/report"
)

// EstimateDefaults are applied to new estimates when the request leaves the
// rates out.
type EstimateDefaults struct {
	LaborRate      decimal.Decimal
	MaterialMarkup decimal.Decimal
	TaxRate        decimal.Decimal
}

// API exposes the estimating engine over JSON for the office tooling.
type API struct {
	Tracker    *materials.Tracker
	Materials  *materials.Repo
	Converter  *conversion.Service
	Estimates  *estimates.Repo
	Jobs       *jobs.Repo
	Difficulty *difficulty.Repo
	Defaults   EstimateDefaults
	Log        *slog.Logger
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /estimates", a.createEstimate)
	mux.HandleFunc("PUT /estimates/{id}/rooms", a.saveRooms)
	mux.HandleFunc("POST /estimates/{id}/status", a.updateStatus)
	mux.HandleFunc("POST /estimates/{id}/convert", a.convert)
	mux.HandleFunc("GET /estimates/{id}/export", a.exportEstimate)
	mux.HandleFunc("GET /estimates/{id}/suggested-presets", a.suggestedPresets)
	mux.HandleFunc("POST /estimates/{id}/adjustments", a.applyAdjustment)

	mux.HandleFunc("POST /materials", a.createMaterial)
	mux.HandleFunc("GET /materials", a.listMaterials)
	mux.HandleFunc("POST /materials/{id}/price", a.updatePrice)
	mux.HandleFunc("GET /materials/{id}/recommendation", a.recommendation)
	mux.HandleFunc("GET /materials/{id}/history/export", a.exportPriceHistory)

	mux.HandleFunc("GET /jobs", a.listJobs)
	mux.HandleFunc("GET /jobs/{id}", a.getJob)
	mux.HandleFunc("GET /jobs/{id}/stages", a.jobStages)
	mux.HandleFunc("GET /jobs/{id}/permits", a.jobPermits)
	mux.HandleFunc("POST /job-stages/{id}/actuals", a.recordStageActuals)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type createEstimateRequest struct {
	CustomerID    int64  `json:"customer_id"`
	JobName       string `json:"job_name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	SquareFootage *int   `json:"square_footage,omitempty"`
	NumFloors     *int   `json:"num_floors,omitempty"`
	CreatedBy     string `json:"created_by"`

	// Rates are pointers so an explicit 0 (tax-exempt customer, no markup)
	// is distinguishable from an omitted field taking the configured default.
	LaborRate      *decimal.Decimal `json:"labor_rate,omitempty"`
	MaterialMarkup *decimal.Decimal `json:"material_markup,omitempty"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
}

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

func (a *API) createEstimate(w http.ResponseWriter, r *http.Request) {
	var req createEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CustomerID == 0 || req.JobName == "" {
		writeError(w, http.StatusBadRequest, errors.New("customer_id and job_name are required"))
		return
	}

	number, err := a.Estimates.NextEstimateNumber(r.Context())
	if err != nil {
		a.Log.Error("estimate number allocation failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	e, err := a.Estimates.Create(r.Context(), estimates.Estimate{
		EstimateNumber: number,
		Version:        1,
		CustomerID:     req.CustomerID,
		JobName:        req.JobName,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		SquareFootage:  req.SquareFootage,
		NumFloors:      req.NumFloors,
		CreatedBy:      req.CreatedBy,
		LaborRate:      orDefault(req.LaborRate, a.Defaults.LaborRate),
		MaterialMarkup: orDefault(req.MaterialMarkup, a.Defaults.MaterialMarkup),
		TaxRate:        orDefault(req.TaxRate, a.Defaults.TaxRate),
	})
	if err != nil {
		a.Log.Error("estimate create failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// saveRooms replaces the estimate's rooms and recomputes the stage summaries
// from the new line items before persisting both together.
func (a *API) saveRooms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var rooms []estimates.Room
	if err := json.NewDecoder(r.Body).Decode(&rooms); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summaries := costing.StageSummaries(&estimates.Estimate{ID: id, Rooms: rooms})
	if err := a.Estimates.SaveRooms(r.Context(), id, rooms, summaries); err != nil {
		if errors.Is(err, estimates.ErrNotEditable) {
			writeError(w, http.StatusConflict, err)
			return
		}
		a.Log.Error("room save failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type updateStatusRequest struct {
	Status estimates.Status `json:"status"`
}

func (a *API) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = a.Estimates.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, estimates.ErrStatusOwned):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, estimates.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, estimates.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		a.Log.Error("status update failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

type convertRequest struct {
	PermitItems        bool `json:"permit_items"`
	RoomSpecifications bool `json:"room_specifications"`
}

func (a *API) convert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req convertRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	job, err := a.Converter.Convert(r.Context(), id, conversion.Options{
		CreatePermitItems:        req.PermitItems,
		CreateRoomSpecifications: req.RoomSpecifications,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, job)
	case errors.Is(err, conversion.ErrEstimateNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, conversion.ErrNotApproved), errors.Is(err, conversion.ErrAlreadyConverted):
		writeError(w, http.StatusConflict, err)
	default:
		a.Log.Error("conversion failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) exportEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := a.Estimates.GetWithDetails(r.Context(), id)
	if err != nil {
		a.Log.Error("estimate load failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, errors.New("estimate not found"))
		return
	}

	book, err := report.EstimateWorkbook(e)
	if err != nil {
		a.Log.Error("estimate export failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+e.EstimateNumber+`.xlsx"`)
	_, _ = w.Write(book)
}

// suggestedPresets ranks difficulty presets for an estimate from its address,
// its creation month, and the customer's history. Advisory only.
func (a *API) suggestedPresets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := a.Estimates.GetByID(r.Context(), id)
	if err != nil {
		a.Log.Error("estimate load failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, errors.New("estimate not found"))
		return
	}

	presets, err := a.Difficulty.ListPresets(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	history, err := a.Difficulty.ListAdjustmentsByCustomer(r.Context(), e.CustomerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, difficulty.Suggest(e.Address, e.CreatedAt, presets, history))
}

type applyAdjustmentRequest struct {
	PresetID  int64  `json:"preset_id"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"created_by"`
}

type applyAdjustmentResponse struct {
	AdjustmentID int64                     `json:"adjustment_id"`
	Preset       string                    `json:"preset"`
	Stages       []difficulty.StageMinutes `json:"stages"`
}

// applyAdjustment records a preset application against an estimate as an
// append-only audit row and returns the adjusted stage labor minutes. The
// audit trail feeds the customer-majority prong of preset suggestions.
func (a *API) applyAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req applyAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e, err := a.Estimates.GetByID(r.Context(), id)
	if err != nil {
		a.Log.Error("estimate load failed", "estimate_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, estimates.ErrNotFound)
		return
	}
	if !e.Status.Editable() {
		writeError(w, http.StatusConflict, estimates.ErrNotEditable)
		return
	}

	p, err := a.Difficulty.GetPreset(r.Context(), req.PresetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, errors.New("preset not found"))
		return
	}

	adj := difficulty.FromPreset(*p, req.Reason, req.CreatedBy)
	adj.EstimateID = &e.ID
	adjID, err := a.Difficulty.CreateAdjustment(r.Context(), adj)
	if err != nil {
		a.Log.Error("adjustment create failed", "estimate_id", id, "preset_id", p.ID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	summaries, err := a.Estimates.StageSummaries(r.Context(), e.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, applyAdjustmentResponse{
		AdjustmentID: adjID,
		Preset:       p.Name,
		Stages:       p.ApplyToSummaries(summaries),
	})
}

type createMaterialRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	MinStockLevel int             `json:"min_stock_level"`
	MaxStockLevel int             `json:"max_stock_level"`
	CreatedBy     string          `json:"created_by"`
}

func (a *API) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("code and name are required"))
		return
	}

	m, err := a.Materials.Create(r.Context(), materials.Material{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		UnitOfMeasure: req.UnitOfMeasure,
		CurrentPrice:  req.CurrentPrice,
		TaxRate:       req.TaxRate,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		a.Log.Error("material create failed", "code", req.Code, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) listMaterials(w http.ResponseWriter, r *http.Request) {
	var (
		out []materials.Material
		err error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		out, err = a.Materials.SearchByName(r.Context(), q)
	} else {
		out, err = a.Materials.List(r.Context(), true)
	}
	if err != nil {
		a.Log.Error("material list failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type updatePriceRequest struct {
	NewPrice      decimal.Decimal  `json:"new_price"`
	ChangedBy     string           `json:"changed_by"`
	VendorID      *int64           `json:"vendor_id,omitempty"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
}

func (a *API) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := []materials.UpdateOption{}
	if req.VendorID != nil {
		opts = append(opts, materials.WithVendor(*req.VendorID))
	}
	if req.InvoiceNumber != "" {
		opts = append(opts, materials.WithInvoice(req.InvoiceNumber))
	}
	if req.Quantity != nil {
		opts = append(opts, materials.WithQuantity(*req.Quantity))
	}

	hist, err := a.Tracker.UpdatePrice(r.Context(), id, req.NewPrice, req.ChangedBy, opts...)
	if err != nil {
		if errors.Is(err, materials.ErrMaterialNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		a.Log.Error("price update failed", "material_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (a *API) recommendation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := a.Tracker.Recommend(r.Context(), id)
	if err != nil {
		if errors.Is(err, materials.ErrMaterialNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		a.Log.Error("recommendation failed", "material_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) exportPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	days := 365
	if d := r.URL.Query().Get("days"); d != "" {
		days, err = strconv.Atoi(d)
		if err != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("days must be a positive integer"))
			return
		}
	}

	m, err := a.Materials.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, materials.ErrMaterialNotFound)
		return
	}
	history, err := a.Materials.PriceHistorySince(r.Context(), id, time.Now().AddDate(0, 0, -days))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	book, err := report.PriceHistoryWorkbook(*m, history)
	if err != nil {
		a.Log.Error("history export failed", "material_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+m.Code+`-history.xlsx"`)
	_, _ = w.Write(book)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("customer_id is required"))
		return
	}
	out, err := a.Jobs.ListByCustomer(r.Context(), customerID)
	if err != nil {
		a.Log.Error("job list failed", "customer_id", customerID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	j, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		a.Log.Error("job load failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

type jobStageView struct {
	Stage                jobs.JobStage
	HoursVariance        decimal.Decimal
	MaterialCostVariance decimal.Decimal
	EstimatedTotalCost   decimal.Decimal
}

func (a *API) jobStages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stages, err := a.Jobs.ListStages(r.Context(), id)
	if err != nil {
		a.Log.Error("stage list failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]jobStageView, 0, len(stages))
	for _, s := range stages {
		out = append(out, jobStageView{
			Stage:                s,
			HoursVariance:        s.HoursVariance(),
			MaterialCostVariance: s.MaterialCostVariance(),
			EstimatedTotalCost:   s.EstimatedTotalCost(a.Defaults.LaborRate),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) jobPermits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	permits, err := a.Jobs.ListPermitItems(r.Context(), id)
	if err != nil {
		a.Log.Error("permit list failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, permits)
}

type stageActualsRequest struct {
	Hours        decimal.Decimal `json:"hours"`
	MaterialCost decimal.Decimal `json:"material_cost"`
}

func (a *API) recordStageActuals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req stageActualsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.Jobs.RecordStageActuals(r.Context(), id, req.Hours, req.MaterialCost); err != nil {
		a.Log.Error("stage actuals failed", "stage_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
