package repositories

import (
	"context"
	"errors"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntakeRepository persists the per-session intake records: customer
// request, inspection with items, and test drive. Each is 1:1 with its
// session, enforced by unique constraints.
type IntakeRepository struct {
	DB *pgxpool.Pool
}

func NewIntakeRepository(db *pgxpool.Pool) *IntakeRepository {
	return &IntakeRepository{DB: db}
}

func (r *IntakeRepository) CreateCustomerRequest(ctx context.Context, cr *models.CustomerRequest) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO customer_requests (company_id, session_id, title, description, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		cr.CompanyID, cr.SessionID, cr.Title, cr.Description, cr.Status,
	).Scan(&cr.ID, &cr.CreatedAt)
	if isUniqueViolation(err) {
		return models.Errorf(models.ErrConflict, "session %d already has a customer request", cr.SessionID)
	}
	return err
}

func (r *IntakeRepository) GetCustomerRequest(ctx context.Context, companyID, id int) (*models.CustomerRequest, error) {
	var cr models.CustomerRequest
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, session_id, title, description, status, created_at, updated_at
		 FROM customer_requests WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&cr.ID, &cr.CompanyID, &cr.SessionID, &cr.Title, &cr.Description,
		&cr.Status, &cr.CreatedAt, &cr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *IntakeRepository) CreateInspection(ctx context.Context, in *models.Inspection) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO inspections (company_id, session_id, inspector_id, status, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		in.CompanyID, in.SessionID, in.InspectorID, in.Status, in.Notes,
	).Scan(&in.ID, &in.CreatedAt)
	if isUniqueViolation(err) {
		return models.Errorf(models.ErrConflict, "session %d already has an inspection", in.SessionID)
	}
	return err
}

func (r *IntakeRepository) GetInspection(ctx context.Context, companyID, id int) (*models.Inspection, error) {
	var in models.Inspection
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, session_id, inspector_id, status, notes, completed_at, created_at, updated_at
		 FROM inspections WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&in.ID, &in.CompanyID, &in.SessionID, &in.InspectorID, &in.Status,
		&in.Notes, &in.CompletedAt, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, company_id, inspection_id, area, title, finding, severity, created_at
		 FROM inspection_items WHERE inspection_id = $1 ORDER BY id`, in.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.InspectionItem
		if err := rows.Scan(&it.ID, &it.CompanyID, &it.InspectionID, &it.Area,
			&it.Title, &it.Finding, &it.Severity, &it.CreatedAt); err != nil {
			return nil, err
		}
		in.Items = append(in.Items, it)
	}
	return &in, rows.Err()
}

func (r *IntakeRepository) AddInspectionItem(ctx context.Context, it *models.InspectionItem) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO inspection_items (company_id, inspection_id, area, title, finding, severity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		it.CompanyID, it.InspectionID, it.Area, it.Title, it.Finding, it.Severity,
	).Scan(&it.ID, &it.CreatedAt)
}

func (r *IntakeRepository) GetInspectionItem(ctx context.Context, companyID, id int) (*models.InspectionItem, error) {
	var it models.InspectionItem
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, inspection_id, area, title, finding, severity, created_at
		 FROM inspection_items WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&it.ID, &it.CompanyID, &it.InspectionID, &it.Area, &it.Title,
		&it.Finding, &it.Severity, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CompleteIntake marks one of the intake tables completed. The table name is
// one of the three fixed constants below, never caller input.
const (
	tableCustomerRequests = "customer_requests"
	tableInspections      = "inspections"
	tableTestDrives       = "test_drives"
)

func (r *IntakeRepository) completeIntake(ctx context.Context, table string, companyID, id int, now time.Time, extra string, args ...any) error {
	query := `UPDATE ` + table + ` SET status = $1, updated_at = $2`
	if table != tableCustomerRequests {
		query += `, completed_at = $2`
	}
	query += extra
	query += ` WHERE id = $3 AND company_id = $4 AND status <> $1`

	params := append([]any{models.IntakeCompleted, now, id, companyID}, args...)
	tag, err := r.DB.Exec(ctx, query, params...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "record %d already completed or missing", id)
	}
	return nil
}

func (r *IntakeRepository) CompleteCustomerRequest(ctx context.Context, companyID, id int, now time.Time) error {
	return r.completeIntake(ctx, tableCustomerRequests, companyID, id, now, "")
}

func (r *IntakeRepository) CompleteInspection(ctx context.Context, companyID, id int, now time.Time) error {
	return r.completeIntake(ctx, tableInspections, companyID, id, now, "")
}

func (r *IntakeRepository) CompleteTestDrive(ctx context.Context, companyID, id int, findings string, now time.Time) error {
	return r.completeIntake(ctx, tableTestDrives, companyID, id, now, `, findings = $5`, findings)
}

func (r *IntakeRepository) CreateTestDrive(ctx context.Context, td *models.TestDrive) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO test_drives (company_id, session_id, driver_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		td.CompanyID, td.SessionID, td.DriverID, td.Status,
	).Scan(&td.ID, &td.CreatedAt)
	if isUniqueViolation(err) {
		return models.Errorf(models.ErrConflict, "session %d already has a test drive", td.SessionID)
	}
	return err
}

func (r *IntakeRepository) GetTestDrive(ctx context.Context, companyID, id int) (*models.TestDrive, error) {
	var td models.TestDrive
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, session_id, driver_id, status, findings, completed_at, created_at, updated_at
		 FROM test_drives WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&td.ID, &td.CompanyID, &td.SessionID, &td.DriverID, &td.Status,
		&td.Findings, &td.CompletedAt, &td.CreatedAt, &td.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}
