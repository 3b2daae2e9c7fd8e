package repositories

import (
	"context"
	"errors"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PartRepository struct {
	DB *pgxpool.Pool
}

func NewPartRepository(db *pgxpool.Pool) *PartRepository {
	return &PartRepository{DB: db}
}

func (r *PartRepository) Add(ctx context.Context, p *models.JobCardPart) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO job_card_parts (company_id, item_id, part_number, name, status,
			quantity_used, unit_cost, unit_price, markup, total_cost, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		p.CompanyID, p.ItemID, p.PartNumber, p.Name, p.Status,
		p.QuantityUsed, p.UnitCost, p.UnitPrice, p.Markup, p.TotalCost, p.TotalPrice,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *PartRepository) Get(ctx context.Context, companyID, id int) (*models.JobCardPart, error) {
	var p models.JobCardPart
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, item_id, part_number, name, status, quantity_used,
			unit_cost, unit_price, markup, total_cost, total_price, created_at, updated_at
		 FROM job_card_parts WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&p.ID, &p.CompanyID, &p.ItemID, &p.PartNumber, &p.Name, &p.Status,
		&p.QuantityUsed, &p.UnitCost, &p.UnitPrice, &p.Markup,
		&p.TotalCost, &p.TotalPrice, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PartRepository) ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardPart, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, company_id, item_id, part_number, name, status, quantity_used,
			unit_cost, unit_price, markup, total_cost, total_price, created_at, updated_at
		 FROM job_card_parts WHERE item_id = $1 AND company_id = $2 ORDER BY id`,
		itemID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []models.JobCardPart
	for rows.Next() {
		var p models.JobCardPart
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.ItemID, &p.PartNumber, &p.Name,
			&p.Status, &p.QuantityUsed, &p.UnitCost, &p.UnitPrice, &p.Markup,
			&p.TotalCost, &p.TotalPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// UpdateStatus compare-and-sets the procurement state.
func (r *PartRepository) UpdateStatus(ctx context.Context, companyID, id int, from, to models.PartStatus, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE job_card_parts SET status = $1, updated_at = $2
		 WHERE id = $3 AND company_id = $4 AND status = $5`,
		to, now, id, companyID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "part %d changed concurrently", id)
	}
	return nil
}
