package materials

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const materialCols = `
	material_id, material_code, name, description, category, unit_of_measure,
	current_price, tax_rate, min_stock_level, max_stock_level,
	preferred_vendor_id, is_active, created_at, updated_at, created_by`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	err := row.Scan(
		&m.ID, &m.Code, &m.Name, &m.Description, &m.Category, &m.UnitOfMeasure,
		&m.CurrentPrice, &m.TaxRate, &m.MinStockLevel, &m.MaxStockLevel,
		&m.PreferredVendorID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt, &m.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Create(ctx context.Context, m Material) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO materials
		(material_code, name, description, category, unit_of_measure,
		 current_price, tax_rate, min_stock_level, max_stock_level,
		 preferred_vendor_id, is_active, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE,$11)
		RETURNING `+materialCols,
		m.Code, m.Name, m.Description, m.Category, m.UnitOfMeasure,
		m.CurrentPrice, m.TaxRate, m.MinStockLevel, m.MaxStockLevel,
		m.PreferredVendorID, m.CreatedBy)
	return scanMaterial(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+materialCols+` FROM materials WHERE material_id = $1`, id)
	m, err := scanMaterial(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *Repo) List(ctx context.Context, onlyActive bool) ([]Material, error) {
	q := `SELECT ` + materialCols + ` FROM materials`
	if onlyActive {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY category, name`
	return r.queryMaterials(ctx, q)
}

// SearchByName matches materials by part of the name or code, case-insensitive.
func (r *Repo) SearchByName(ctx context.Context, q string) ([]Material, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	like := "%" + strings.ToLower(q) + "%"
	return r.queryMaterials(ctx, `
		SELECT `+materialCols+`
		FROM materials
		WHERE LOWER(name) LIKE $1 OR LOWER(material_code) LIKE $1
		ORDER BY category, name
	`, like)
}

func (r *Repo) queryMaterials(ctx context.Context, q string, args ...any) ([]Material, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// RecordPriceChange persists the history row and then the new current price,
// in that order, inside one transaction. The history row captures the
// transition (old -> new), not the post-state.
func (r *Repo) RecordPriceChange(ctx context.Context, materialID int64, newPrice decimal.Decimal, h PriceHistory) (*PriceHistory, *Material, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var old decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT current_price FROM materials WHERE material_id = $1 FOR UPDATE
	`, materialID).Scan(&old); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrMaterialNotFound
		}
		return nil, nil, err
	}

	h.MaterialID = materialID
	h.OldPrice = old
	h.NewPrice = newPrice
	h.PercentChange = PercentChange(old, newPrice)

	if err := tx.QueryRow(ctx, `
		INSERT INTO material_price_history
		(material_id, old_price, new_price, percent_change, changed_by,
		 vendor_id, invoice_number, quantity_purchased, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING history_id, changed_at
	`, h.MaterialID, h.OldPrice, h.NewPrice, h.PercentChange, h.ChangedBy,
		h.VendorID, h.InvoiceNumber, h.QuantityPurchased, h.Notes,
	).Scan(&h.ID, &h.ChangedAt); err != nil {
		return nil, nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE materials SET current_price = $2, updated_at = NOW()
		WHERE material_id = $1
		RETURNING `+materialCols, materialID, newPrice)
	m, err := scanMaterial(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &h, m, nil
}

// PriceHistorySince returns history rows for a material from the given time
// on, oldest first.
func (r *Repo) PriceHistorySince(ctx context.Context, materialID int64, since time.Time) ([]PriceHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT history_id, material_id, old_price, new_price, percent_change,
		       changed_by, changed_at, vendor_id, invoice_number, quantity_purchased, notes
		FROM material_price_history
		WHERE material_id = $1 AND changed_at >= $2
		ORDER BY changed_at, history_id
	`, materialID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceHistory
	for rows.Next() {
		var h PriceHistory
		if err := rows.Scan(
			&h.ID, &h.MaterialID, &h.OldPrice, &h.NewPrice, &h.PercentChange,
			&h.ChangedBy, &h.ChangedAt, &h.VendorID, &h.InvoiceNumber,
			&h.QuantityPurchased, &h.Notes,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
