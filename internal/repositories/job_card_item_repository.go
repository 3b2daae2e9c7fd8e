package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobCardItemRepository struct {
	DB *pgxpool.Pool
}

func NewJobCardItemRepository(db *pgxpool.Pool) *JobCardItemRepository {
	return &JobCardItemRepository{DB: db}
}

const itemColumns = `id, company_id, job_card_id, title, description, status,
	quality_checked, technician_id, estimated_hours, actual_hours,
	source, source_id, created_at, updated_at`

func scanItem(row pgx.Row) (*models.JobCardItem, error) {
	var it models.JobCardItem
	err := row.Scan(&it.ID, &it.CompanyID, &it.JobCardID, &it.Title,
		&it.Description, &it.Status, &it.QualityChecked, &it.TechnicianID,
		&it.EstimatedHours, &it.ActualHours, &it.Source, &it.SourceID,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *JobCardItemRepository) Add(ctx context.Context, it *models.JobCardItem) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO job_card_items (company_id, job_card_id, title, description, status,
			technician_id, estimated_hours, source, source_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		it.CompanyID, it.JobCardID, it.Title, it.Description, it.Status,
		it.TechnicianID, it.EstimatedHours, it.Source, it.SourceID,
	).Scan(&it.ID, &it.CreatedAt)
}

func (r *JobCardItemRepository) Get(ctx context.Context, companyID, id int) (*models.JobCardItem, error) {
	row := r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM job_card_items WHERE id = $1 AND company_id = $2`, itemColumns),
		id, companyID)
	return scanItem(row)
}

func (r *JobCardItemRepository) ListByJobCard(ctx context.Context, companyID, jobCardID int) ([]models.JobCardItem, error) {
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM job_card_items WHERE job_card_id = $1 AND company_id = $2 ORDER BY id`, itemColumns),
		jobCardID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.JobCardItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *JobCardItemRepository) Update(ctx context.Context, it *models.JobCardItem, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE job_card_items
		 SET title = $1, description = $2, technician_id = $3, estimated_hours = $4, updated_at = $5
		 WHERE id = $6 AND company_id = $7`,
		it.Title, it.Description, it.TechnicianID, it.EstimatedHours, now,
		it.ID, it.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateStatus compare-and-sets the item's state so concurrent technicians
// cannot both claim the same move.
func (r *JobCardItemRepository) UpdateStatus(ctx context.Context, companyID, id int, from, to models.ItemStatus, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE job_card_items SET status = $1, updated_at = $2
		 WHERE id = $3 AND company_id = $4 AND status = $5`,
		to, now, id, companyID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "item %d changed concurrently", id)
	}
	return nil
}

func (r *JobCardItemRepository) SetQualityChecked(ctx context.Context, companyID, id int, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE job_card_items SET quality_checked = TRUE, updated_at = $1
		 WHERE id = $2 AND company_id = $3 AND status = $4`,
		now, id, companyID, models.ItemCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrPreconditionFailed, "item %d is not completed", id)
	}
	return nil
}

// Remove deletes a task only while it is still pending; started work is
// history and stays on the card.
func (r *JobCardItemRepository) Remove(ctx context.Context, companyID, id int) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM job_card_items WHERE id = $1 AND company_id = $2 AND status = $3`,
		id, companyID, models.ItemPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrPreconditionFailed, "item %d is not pending", id)
	}
	return nil
}
