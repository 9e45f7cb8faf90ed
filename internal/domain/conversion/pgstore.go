package conversion

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
)

// PgRunner implements TxRunner over a pgx pool. Each InTx call opens one
// transaction; the wrapped Store talks only to that transaction.
type PgRunner struct{ pool *pgxpool.Pool }

func NewPgRunner(pool *pgxpool.Pool) *PgRunner { return &PgRunner{pool: pool} }

func (r *PgRunner) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct{ tx pgx.Tx }

func (s *txStore) EstimateWithDetails(ctx context.Context, estimateID int64) (*estimates.Estimate, error) {
	row := s.tx.QueryRow(ctx, `
		SELECT estimate_id, estimate_number, version, customer_id, job_name,
		       address, city, state, zip, square_footage, num_floors,
		       status, created_at, expiration_date, notes, created_by,
		       tax_rate, material_markup, labor_rate,
		       converted_to_job_id, converted_date
		FROM estimates
		WHERE estimate_id = $1
		FOR UPDATE
	`, estimateID)

	var e estimates.Estimate
	if err := row.Scan(
		&e.ID, &e.EstimateNumber, &e.Version, &e.CustomerID, &e.JobName,
		&e.Address, &e.City, &e.State, &e.Zip, &e.SquareFootage, &e.NumFloors,
		&e.Status, &e.CreatedAt, &e.ExpirationDate, &e.Notes, &e.CreatedBy,
		&e.TaxRate, &e.MaterialMarkup, &e.LaborRate,
		&e.ConvertedToJobID, &e.ConvertedDate,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.tx.Query(ctx, `
		SELECT room_id, estimate_id, room_name, room_order, notes
		FROM estimate_rooms
		WHERE estimate_id = $1
		ORDER BY room_order
	`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rm estimates.Room
		if err := rows.Scan(&rm.ID, &rm.EstimateID, &rm.Name, &rm.RoomOrder, &rm.Notes); err != nil {
			return nil, err
		}
		e.Rooms = append(e.Rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range e.Rooms {
		itemRows, err := s.tx.Query(ctx, `
			SELECT line_id, room_id, item_id, item_code, description, quantity,
			       unit_price, material_cost, labor_minutes, line_order, notes
			FROM estimate_line_items
			WHERE room_id = $1
			ORDER BY line_order
		`, e.Rooms[i].ID)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var li estimates.LineItem
			if err := itemRows.Scan(
				&li.ID, &li.RoomID, &li.ItemID, &li.ItemCode, &li.Description, &li.Quantity,
				&li.UnitPrice, &li.MaterialCost, &li.LaborMinutes, &li.LineOrder, &li.Notes,
			); err != nil {
				itemRows.Close()
				return nil, err
			}
			e.Rooms[i].Items = append(e.Rooms[i].Items, li)
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (s *txStore) EstimateStageSummaries(ctx context.Context, estimateID int64) ([]estimates.StageSummary, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT summary_id, estimate_id, stage, labor_minutes, labor_hours, material_cost, stage_order
		FROM estimate_stage_summaries
		WHERE estimate_id = $1
		ORDER BY stage_order
	`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []estimates.StageSummary
	for rows.Next() {
		var sum estimates.StageSummary
		if err := rows.Scan(&sum.ID, &sum.EstimateID, &sum.Stage, &sum.LaborMinutes, &sum.LaborHours, &sum.MaterialCost, &sum.StageOrder); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *txStore) MaxNumericJobNumber(ctx context.Context) (int64, bool, error) {
	var max *int64
	err := s.tx.QueryRow(ctx, `
		SELECT MAX(CAST(job_number AS BIGINT))
		FROM jobs
		WHERE job_number ~ '^[0-9]+$'
	`).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (s *txStore) InsertJob(ctx context.Context, j jobs.Job) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `
		INSERT INTO jobs
		(job_number, customer_id, job_name, address, city, state, zip,
		 square_footage, num_floors, status, created_at, total_estimate, estimate_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING job_id
	`, j.JobNumber, j.CustomerID, j.JobName, j.Address, j.City, j.State, j.Zip,
		j.SquareFootage, j.NumFloors, j.Status, j.CreatedAt, j.TotalEstimate, j.EstimateID, j.Notes,
	).Scan(&id)
	return id, err
}

func (s *txStore) InsertJobStage(ctx context.Context, st jobs.JobStage) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `
		INSERT INTO job_stages
		(job_id, stage_name, estimated_hours, estimated_material_cost, actual_hours, actual_material_cost, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING stage_id
	`, st.JobID, st.StageName, st.EstimatedHours, st.EstimatedMaterialCost, st.ActualHours, st.ActualMaterialCost, st.Notes,
	).Scan(&id)
	return id, err
}

func (s *txStore) FindJobStage(ctx context.Context, jobID int64, stageName string) (int64, bool, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `
		SELECT stage_id FROM job_stages WHERE job_id = $1 AND stage_name = $2
	`, jobID, stageName).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *txStore) FindVendor(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `SELECT vendor_id FROM vendors WHERE name = $1`, name).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *txStore) InsertVendor(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `
		INSERT INTO vendors (name) VALUES ($1) RETURNING vendor_id
	`, name).Scan(&id)
	return id, err
}

func (s *txStore) InsertMaterialEntry(ctx context.Context, e jobs.MaterialEntry) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO material_entries (job_id, stage_id, vendor_id, entry_date, cost, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.JobID, e.StageID, e.VendorID, e.Date, e.Cost, e.Notes)
	return err
}

func (s *txStore) InsertPermitItem(ctx context.Context, p jobs.PermitItem) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO permit_items (job_id, category, quantity, description)
		VALUES ($1,$2,$3,$4)
	`, p.JobID, p.Category, p.Quantity, p.Description)
	return err
}

func (s *txStore) InsertRoomSpecification(ctx context.Context, spec jobs.RoomSpecification) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO room_specifications
		(job_id, room_name, item_description, quantity, item_code, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, spec.JobID, spec.RoomName, spec.ItemDescription, spec.Quantity, spec.ItemCode, spec.UnitPrice, spec.TotalPrice)
	return err
}

func (s *txStore) MarkEstimateConverted(ctx context.Context, estimateID, jobID int64, at time.Time) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE estimates
		SET status = $2, converted_to_job_id = $3, converted_date = $4
		WHERE estimate_id = $1
	`, estimateID, string(estimates.StatusConverted), jobID, at)
	return err
}
