package conversion

import (
	"context"
	"time"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
)

// Store is the persistence gateway the orchestrator drives. Every method is
// expected to run inside the transaction opened by TxRunner.InTx; the
// orchestrator never talks to the database outside of it.
type Store interface {
	EstimateWithDetails(ctx context.Context, estimateID int64) (*estimates.Estimate, error)
	EstimateStageSummaries(ctx context.Context, estimateID int64) ([]estimates.StageSummary, error)

	// MaxNumericJobNumber returns the highest all-digit job number, with
	// ok=false when no such job exists yet.
	MaxNumericJobNumber(ctx context.Context) (int64, bool, error)

	InsertJob(ctx context.Context, j jobs.Job) (int64, error)
	InsertJobStage(ctx context.Context, s jobs.JobStage) (int64, error)
	FindJobStage(ctx context.Context, jobID int64, stageName string) (int64, bool, error)

	FindVendor(ctx context.Context, name string) (int64, bool, error)
	InsertVendor(ctx context.Context, name string) (int64, error)

	InsertMaterialEntry(ctx context.Context, e jobs.MaterialEntry) error
	InsertPermitItem(ctx context.Context, p jobs.PermitItem) error
	InsertRoomSpecification(ctx context.Context, s jobs.RoomSpecification) error

	MarkEstimateConverted(ctx context.Context, estimateID, jobID int64, at time.Time) error
}

// TxRunner runs fn against a Store bound to a single database transaction.
// If fn returns an error the transaction rolls back and nothing fn wrote
// survives.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
