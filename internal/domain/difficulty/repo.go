package difficulty

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) ListPresets(ctx context.Context, onlyActive bool) ([]Preset, error) {
	q := `
		SELECT preset_id, name, description, category,
		       rough_multiplier, finish_multiplier, service_multiplier, extra_multiplier,
		       is_active, sort_order
		FROM difficulty_presets
	`
	if onlyActive {
		q += " WHERE is_active = TRUE"
	}
	q += " ORDER BY category, sort_order"

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		var p Preset
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category,
			&p.Rough, &p.Finish, &p.Service, &p.Extra,
			&p.IsActive, &p.SortOrder,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetPreset(ctx context.Context, id int64) (*Preset, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT preset_id, name, description, category,
		       rough_multiplier, finish_multiplier, service_multiplier, extra_multiplier,
		       is_active, sort_order
		FROM difficulty_presets
		WHERE preset_id = $1
	`, id)
	var p Preset
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Rough, &p.Finish, &p.Service, &p.Extra,
		&p.IsActive, &p.SortOrder,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateAdjustment appends an audit row. Adjustments are never updated or
// deleted afterwards.
func (r *Repo) CreateAdjustment(ctx context.Context, a Adjustment) (int64, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO labor_adjustments
		(estimate_id, job_id, adjustment_type, preset_id,
		 rough_multiplier, finish_multiplier, service_multiplier, extra_multiplier,
		 reason, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING adjustment_id
	`, a.EstimateID, a.JobID, string(a.Type), a.PresetID,
		a.Rough, a.Finish, a.Service, a.Extra,
		a.Reason, a.CreatedBy)

	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) ListAdjustmentsByJob(ctx context.Context, jobID int64) ([]Adjustment, error) {
	return r.listAdjustments(ctx, `WHERE a.job_id = $1`, jobID)
}

// ListAdjustmentsByCustomer returns every adjustment applied to any of the
// customer's jobs, oldest first, for the suggestion majority vote.
func (r *Repo) ListAdjustmentsByCustomer(ctx context.Context, customerID int64) ([]Adjustment, error) {
	return r.listAdjustments(ctx, `
		JOIN jobs j ON j.job_id = a.job_id
		WHERE j.customer_id = $1`, customerID)
}

func (r *Repo) listAdjustments(ctx context.Context, filter string, arg any) ([]Adjustment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.adjustment_id, a.estimate_id, a.job_id, a.adjustment_type, a.preset_id,
		       a.rough_multiplier, a.finish_multiplier, a.service_multiplier, a.extra_multiplier,
		       a.reason, a.created_by, a.created_at
		FROM labor_adjustments a
		`+filter+`
		ORDER BY a.created_at, a.adjustment_id
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Adjustment
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(
			&a.ID, &a.EstimateID, &a.JobID, &a.Type, &a.PresetID,
			&a.Rough, &a.Finish, &a.Service, &a.Extra,
			&a.Reason, &a.CreatedBy, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
