package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hartline-electric/backoffice/internal/domain/costing"
	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
	"github.com/hartline-electric/backoffice/internal/domain/stage"
	"github.com/hartline-electric/backoffice/internal/infra/metrics"
)

var (
	ErrEstimateNotFound = errors.New("estimate not found")
	ErrNotApproved      = errors.New("only approved estimates can be converted to jobs")
	ErrAlreadyConverted = errors.New("estimate has already been converted to a job")
)

// jobNumberFloor seeds numbering when no numeric job numbers exist yet.
const jobNumberFloor = 400

// DefaultVendorName is the vendor that initial material allocations are
// booked against. Created lazily inside the conversion transaction.
const DefaultVendorName = "Stock/Estimate"

// Options controls the optional conversion outputs.
type Options struct {
	CreatePermitItems        bool
	CreateRoomSpecifications bool
}

// Service promotes an approved estimate into a live job. The whole
// promotion is one database transaction: job, stages, material entries,
// permit items, room specifications and the estimate status flip either all
// commit or none do.
type Service struct {
	db  TxRunner
	log *slog.Logger
	now func() time.Time
}

func NewService(db TxRunner, log *slog.Logger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// Convert runs the estimate-to-job promotion. Guard violations (not
// approved, already converted) surface as typed errors and are never
// retried here; persistence failures roll the transaction back and
// propagate, leaving the estimate untouched so the caller may resubmit.
func (s *Service) Convert(ctx context.Context, estimateID int64, opts Options) (*jobs.Job, error) {
	var job *jobs.Job

	err := s.db.InTx(ctx, func(st Store) error {
		e, err := st.EstimateWithDetails(ctx, estimateID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrEstimateNotFound
		}
		if e.Converted() {
			return ErrAlreadyConverted
		}
		if !e.Status.Convertible() {
			return fmt.Errorf("%w (status %s)", ErrNotApproved, e.Status)
		}

		now := s.now()

		number, err := s.nextJobNumber(ctx, st)
		if err != nil {
			return fmt.Errorf("generate job number: %w", err)
		}

		totals := costing.Calculate(e)
		j := jobs.Job{
			JobNumber:     number,
			CustomerID:    e.CustomerID,
			JobName:       e.JobName,
			Address:       e.Address,
			City:          e.City,
			State:         e.State,
			Zip:           e.Zip,
			SquareFootage: e.SquareFootage,
			NumFloors:     e.NumFloors,
			Status:        jobs.StatusInProgress,
			CreatedAt:     now,
			TotalEstimate: &totals.TotalPrice,
			EstimateID:    &e.ID,
			Notes:         fmt.Sprintf("Created from Estimate #%s v%d", e.EstimateNumber, e.Version),
		}
		jobID, err := st.InsertJob(ctx, j)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		j.ID = jobID

		summaries, err := st.EstimateStageSummaries(ctx, e.ID)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			summaries = costing.StageSummaries(e)
		}
		for _, sum := range summaries {
			if _, err := st.InsertJobStage(ctx, jobs.JobStage{
				JobID:                 jobID,
				StageName:             sum.Stage,
				EstimatedHours:        sum.LaborHours,
				EstimatedMaterialCost: sum.MaterialCost,
				ActualHours:           decimal.Zero,
				ActualMaterialCost:    decimal.Zero,
			}); err != nil {
				return fmt.Errorf("insert job stage %s: %w", sum.Stage, err)
			}
		}

		if err := s.createMaterialEntries(ctx, st, e, jobID, now); err != nil {
			return err
		}

		if opts.CreatePermitItems {
			if err := s.createPermitItems(ctx, st, e, jobID); err != nil {
				return err
			}
		}
		if opts.CreateRoomSpecifications {
			if err := s.createRoomSpecifications(ctx, st, e, jobID); err != nil {
				return err
			}
		}

		if err := st.MarkEstimateConverted(ctx, e.ID, jobID, now); err != nil {
			return fmt.Errorf("mark estimate converted: %w", err)
		}

		job = &j
		return nil
	})

	switch {
	case err == nil:
		metrics.ConversionsTotal.WithLabelValues("success").Inc()
		s.log.Info("estimate converted", "estimate_id", estimateID, "job_id", job.ID, "job_number", job.JobNumber)
		return job, nil
	case errors.Is(err, ErrNotApproved) || errors.Is(err, ErrAlreadyConverted) || errors.Is(err, ErrEstimateNotFound):
		metrics.ConversionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	default:
		metrics.ConversionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("convert estimate %d: %w", estimateID, err)
	}
}

// nextJobNumber is a read-then-insert inside the conversion transaction.
// Concurrent conversions can observe the same max; the unique constraint on
// jobs.job_number turns that race into a retryable failure.
func (s *Service) nextJobNumber(ctx context.Context, st Store) (string, error) {
	max, ok, err := st.MaxNumericJobNumber(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		max = jobNumberFloor
	}
	return strconv.FormatInt(max+1, 10), nil
}

// createMaterialEntries books one aggregated material entry per work stage
// against the default vendor. Stages with no positive cost are skipped; a
// stage missing from the summaries is created on the fly with zero
// estimates.
func (s *Service) createMaterialEntries(ctx context.Context, st Store, e *estimates.Estimate, jobID int64, now time.Time) error {
	groups := map[string]decimal.Decimal{}
	var order []string
	for _, li := range e.LineItems() {
		name := stage.Determine(li.ItemCode)
		if _, ok := groups[name]; !ok {
			order = append(order, name)
			groups[name] = decimal.Zero
		}
		groups[name] = groups[name].Add(li.TotalPrice())
	}

	var vendorID int64
	for _, name := range order {
		total := groups[name]
		if !total.IsPositive() {
			continue
		}

		stageID, found, err := st.FindJobStage(ctx, jobID, name)
		if err != nil {
			return err
		}
		if !found {
			stageID, err = st.InsertJobStage(ctx, jobs.JobStage{
				JobID:                 jobID,
				StageName:             name,
				EstimatedHours:        decimal.Zero,
				EstimatedMaterialCost: decimal.Zero,
				ActualHours:           decimal.Zero,
				ActualMaterialCost:    decimal.Zero,
			})
			if err != nil {
				return fmt.Errorf("create stage %s: %w", name, err)
			}
		}

		if vendorID == 0 {
			vendorID, err = s.defaultVendor(ctx, st)
			if err != nil {
				return err
			}
		}

		if err := st.InsertMaterialEntry(ctx, jobs.MaterialEntry{
			JobID:    jobID,
			StageID:  stageID,
			VendorID: vendorID,
			Date:     now,
			Cost:     total.Round(2),
			Notes:    fmt.Sprintf("Initial material allocation from estimate - %s stage", name),
		}); err != nil {
			return fmt.Errorf("insert material entry for %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) defaultVendor(ctx context.Context, st Store) (int64, error) {
	id, found, err := st.FindVendor(ctx, DefaultVendorName)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}
	return st.InsertVendor(ctx, DefaultVendorName)
}

var permitCategoryOrder = []string{
	stage.PermitSwitches,
	stage.PermitReceptacles,
	stage.PermitLights,
	stage.PermitFans,
	stage.Permit240V,
	stage.PermitGFCI,
}

func (s *Service) createPermitItems(ctx context.Context, st Store, e *estimates.Estimate, jobID int64) error {
	counts := map[string]int{}
	for _, li := range e.LineItems() {
		if cat := stage.PermitCategory(li.ItemCode); cat != "" {
			counts[cat] += li.Quantity
		}
	}

	for _, cat := range permitCategoryOrder {
		if counts[cat] == 0 {
			continue
		}
		if err := st.InsertPermitItem(ctx, jobs.PermitItem{
			JobID:       jobID,
			Category:    cat,
			Quantity:    counts[cat],
			Description: "Auto-generated from estimate conversion",
		}); err != nil {
			return fmt.Errorf("insert permit item %s: %w", cat, err)
		}
	}
	return nil
}

func (s *Service) createRoomSpecifications(ctx context.Context, st Store, e *estimates.Estimate, jobID int64) error {
	for _, room := range e.Rooms {
		for _, li := range room.Items {
			if err := st.InsertRoomSpecification(ctx, jobs.RoomSpecification{
				JobID:           jobID,
				RoomName:        room.Name,
				ItemDescription: li.Description,
				Quantity:        li.Quantity,
				ItemCode:        li.ItemCode,
				UnitPrice:       li.UnitPrice,
				TotalPrice:      li.TotalPrice(),
			}); err != nil {
				return fmt.Errorf("insert room specification %s: %w", room.Name, err)
			}
		}
	}
	return nil
}
