package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const jobCols = `
	job_id, job_number, customer_id, job_name, address, city, state, zip,
	square_footage, num_floors, status, created_at, total_estimate, estimate_id, notes`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobNumber, &j.CustomerID, &j.JobName,
		&j.Address, &j.City, &j.State, &j.Zip,
		&j.SquareFootage, &j.NumFloors, &j.Status, &j.CreatedAt,
		&j.TotalEstimate, &j.EstimateID, &j.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobCols+` FROM jobs WHERE job_id = $1`, id)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (r *Repo) ListByCustomer(ctx context.Context, customerID int64) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobCols+` FROM jobs WHERE customer_id = $1 ORDER BY created_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *Repo) ListStages(ctx context.Context, jobID int64) ([]JobStage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stage_id, job_id, stage_name, estimated_hours, estimated_material_cost,
		       actual_hours, actual_material_cost, notes
		FROM job_stages
		WHERE job_id = $1
		ORDER BY stage_id
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobStage
	for rows.Next() {
		var s JobStage
		if err := rows.Scan(
			&s.ID, &s.JobID, &s.StageName, &s.EstimatedHours, &s.EstimatedMaterialCost,
			&s.ActualHours, &s.ActualMaterialCost, &s.Notes,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListPermitItems(ctx context.Context, jobID int64) ([]PermitItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT permit_id, job_id, category, quantity, description
		FROM permit_items
		WHERE job_id = $1
		ORDER BY permit_id
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PermitItem
	for rows.Next() {
		var p PermitItem
		if err := rows.Scan(&p.ID, &p.JobID, &p.Category, &p.Quantity, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordStageActuals adds labor hours and material cost onto a stage's
// actual columns as field work gets logged.
func (r *Repo) RecordStageActuals(ctx context.Context, stageID int64, hours, materialCost decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_stages
		SET actual_hours = actual_hours + $2,
		    actual_material_cost = actual_material_cost + $3
		WHERE stage_id = $1
	`, stageID, hours, materialCost)
	return err
}
