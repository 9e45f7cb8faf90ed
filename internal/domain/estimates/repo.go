package estimates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotEditable = errors.New("estimate is no longer editable")

	// ErrStatusOwned guards the Converted state, which only the conversion
	// transaction may set.
	ErrStatusOwned = errors.New("converted status is set by conversion only")

	ErrNotFound          = errors.New("estimate not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// estimateNumberFloor seeds EST- numbering when the table is empty.
const estimateNumberFloor = 1000

// NextEstimateNumber allocates the next EST-<n> number from the highest
// numeric suffix on record.
func (r *Repo) NextEstimateNumber(ctx context.Context) (string, error) {
	var last *int64
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(CAST(SUBSTRING(estimate_number FROM 5) AS BIGINT))
		FROM estimates
		WHERE estimate_number LIKE 'EST-%' AND SUBSTRING(estimate_number FROM 5) ~ '^[0-9]+$'
	`).Scan(&last)
	if err != nil {
		return "", err
	}
	n := int64(estimateNumberFloor)
	if last != nil {
		n = *last
	}
	return fmt.Sprintf("EST-%d", n+1), nil
}

const estimateCols = `
	estimate_id, estimate_number, version, customer_id, job_name,
	address, city, state, zip, square_footage, num_floors,
	status, created_at, expiration_date, notes, created_by,
	tax_rate, material_markup, labor_rate,
	converted_to_job_id, converted_date`

func scanEstimate(row pgx.Row) (*Estimate, error) {
	var e Estimate
	err := row.Scan(
		&e.ID, &e.EstimateNumber, &e.Version, &e.CustomerID, &e.JobName,
		&e.Address, &e.City, &e.State, &e.Zip, &e.SquareFootage, &e.NumFloors,
		&e.Status, &e.CreatedAt, &e.ExpirationDate, &e.Notes, &e.CreatedBy,
		&e.TaxRate, &e.MaterialMarkup, &e.LaborRate,
		&e.ConvertedToJobID, &e.ConvertedDate,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Estimate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+estimateCols+` FROM estimates WHERE estimate_id = $1`, id)
	e, err := scanEstimate(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetWithDetails loads the estimate together with its rooms and line items,
// in room and line order.
func (r *Repo) GetWithDetails(ctx context.Context, id int64) (*Estimate, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil || e == nil {
		return e, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT room_id, estimate_id, room_name, room_order, notes
		FROM estimate_rooms
		WHERE estimate_id = $1
		ORDER BY room_order
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.EstimateID, &rm.Name, &rm.RoomOrder, &rm.Notes); err != nil {
			return nil, err
		}
		e.Rooms = append(e.Rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range e.Rooms {
		items, err := r.roomLineItems(ctx, e.Rooms[i].ID)
		if err != nil {
			return nil, err
		}
		e.Rooms[i].Items = items
	}
	return e, nil
}

func (r *Repo) roomLineItems(ctx context.Context, roomID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT line_id, room_id, item_id, item_code, description, quantity,
		       unit_price, material_cost, labor_minutes, line_order, notes
		FROM estimate_line_items
		WHERE room_id = $1
		ORDER BY line_order
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(
			&li.ID, &li.RoomID, &li.ItemID, &li.ItemCode, &li.Description, &li.Quantity,
			&li.UnitPrice, &li.MaterialCost, &li.LaborMinutes, &li.LineOrder, &li.Notes,
		); err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (r *Repo) StageSummaries(ctx context.Context, estimateID int64) ([]StageSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT summary_id, estimate_id, stage, labor_minutes, labor_hours, material_cost, stage_order
		FROM estimate_stage_summaries
		WHERE estimate_id = $1
		ORDER BY stage_order
	`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StageSummary
	for rows.Next() {
		var s StageSummary
		if err := rows.Scan(&s.ID, &s.EstimateID, &s.Stage, &s.LaborMinutes, &s.LaborHours, &s.MaterialCost, &s.StageOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a new draft estimate shell (no rooms yet).
func (r *Repo) Create(ctx context.Context, e Estimate) (*Estimate, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO estimates
		(estimate_number, version, customer_id, job_name, address, city, state, zip,
		 square_footage, num_floors, status, expiration_date, notes, created_by,
		 tax_rate, material_markup, labor_rate)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING `+estimateCols,
		e.EstimateNumber, e.Version, e.CustomerID, e.JobName, e.Address, e.City, e.State, e.Zip,
		e.SquareFootage, e.NumFloors, string(StatusDraft), e.ExpirationDate, e.Notes, e.CreatedBy,
		e.TaxRate, e.MaterialMarkup, e.LaborRate)
	return scanEstimate(row)
}

// SaveRooms replaces the estimate's rooms and line items and rewrites the
// derived stage summaries in the same transaction. Summaries are deleted and
// reinserted wholesale so they can never diverge from the line items.
// Editing is refused once the estimate has left Draft/Sent.
func (r *Repo) SaveRooms(ctx context.Context, estimateID int64, rooms []Room, summaries []StageSummary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	if err := tx.QueryRow(ctx, `
		SELECT status FROM estimates WHERE estimate_id = $1 FOR UPDATE
	`, estimateID).Scan(&status); err != nil {
		return err
	}
	if !status.Editable() {
		return fmt.Errorf("%w: status %s", ErrNotEditable, status)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM estimate_line_items
		WHERE room_id IN (SELECT room_id FROM estimate_rooms WHERE estimate_id = $1)
	`, estimateID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM estimate_rooms WHERE estimate_id = $1`, estimateID); err != nil {
		return err
	}

	for _, rm := range rooms {
		var roomID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO estimate_rooms (estimate_id, room_name, room_order, notes)
			VALUES ($1,$2,$3,$4)
			RETURNING room_id
		`, estimateID, rm.Name, rm.RoomOrder, rm.Notes).Scan(&roomID); err != nil {
			return err
		}
		for _, li := range rm.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO estimate_line_items
				(room_id, item_id, item_code, description, quantity,
				 unit_price, material_cost, labor_minutes, line_order, notes)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, roomID, li.ItemID, li.ItemCode, li.Description, li.Quantity,
				li.UnitPrice, li.MaterialCost, li.LaborMinutes, li.LineOrder, li.Notes); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM estimate_stage_summaries WHERE estimate_id = $1`, estimateID); err != nil {
		return err
	}
	for _, s := range summaries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO estimate_stage_summaries
			(estimate_id, stage, labor_minutes, labor_hours, material_cost, stage_order)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, estimateID, s.Stage, s.LaborMinutes, s.LaborHours, s.MaterialCost, s.StageOrder); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpdateStatus moves an estimate between pre-conversion states, checking
// the transition against the lifecycle under a row lock. The Converted
// state is owned by the conversion transaction and cannot be set here.
func (r *Repo) UpdateStatus(ctx context.Context, estimateID int64, status Status) error {
	if status == StatusConverted {
		return ErrStatusOwned
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	if err := tx.QueryRow(ctx, `
		SELECT status FROM estimates WHERE estimate_id = $1 FOR UPDATE
	`, estimateID).Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("estimate %d: %w", estimateID, ErrNotFound)
		}
		return err
	}
	if !current.CanTransitionTo(status) {
		return fmt.Errorf("%s -> %s: %w", current, status, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE estimates SET status = $2 WHERE estimate_id = $1
	`, estimateID, string(status)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
