package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceRepository owns invoices, their line items and their payments.
// Every mutating method that touches money finishes with recalcTx inside
// the same transaction, so an item or payment can never be persisted
// without the invoice totals that account for it.
type InvoiceRepository struct {
	DB       *pgxpool.Pool
	Sequence *SequenceRepository
}

func NewInvoiceRepository(db *pgxpool.Pool, seq *SequenceRepository) *InvoiceRepository {
	return &InvoiceRepository{DB: db, Sequence: seq}
}

const invoiceColumns = `id, company_id, invoice_number, client_id, session_id, job_card_id,
	status, subtotal, tax_amount, discount_amount, total, paid_amount, balance_due,
	due_date, paid_date, notes, version, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.InvoiceNumber, &inv.ClientID,
		&inv.SessionID, &inv.JobCardID, &inv.Status, &inv.Subtotal, &inv.TaxAmount,
		&inv.DiscountAmount, &inv.Total, &inv.PaidAmount, &inv.BalanceDue,
		&inv.DueDate, &inv.PaidDate, &inv.Notes, &inv.Version,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create inserts the invoice and any initial items, then derives the totals,
// all in one transaction.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	number, err := r.Sequence.NextNumber(ctx, tx, inv.CompanyID, ScopeInvoice, now)
	if err != nil {
		return err
	}
	inv.InvoiceNumber = number

	err = tx.QueryRow(ctx,
		`INSERT INTO invoices (company_id, invoice_number, client_id, session_id, job_card_id,
			status, discount_amount, due_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, version, created_at`,
		inv.CompanyID, inv.InvoiceNumber, inv.ClientID, inv.SessionID, inv.JobCardID,
		inv.Status, inv.DiscountAmount, inv.DueDate, inv.Notes,
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Errorf(models.ErrConflict, "duplicate invoice number %s", inv.InvoiceNumber)
		}
		return err
	}

	for i := range inv.Items {
		it := &inv.Items[i]
		it.CompanyID = inv.CompanyID
		it.InvoiceID = inv.ID
		if err := insertInvoiceItem(ctx, tx, it); err != nil {
			return err
		}
	}

	if err := r.recalcTx(ctx, tx, inv.CompanyID, inv.ID, now); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	fresh, err := r.Get(ctx, inv.CompanyID, inv.ID)
	if err != nil {
		return err
	}
	*inv = *fresh
	return nil
}

func insertInvoiceItem(ctx context.Context, q Querier, it *models.InvoiceItem) error {
	it.ComputeTotals()
	return q.QueryRow(ctx,
		`INSERT INTO invoice_items (company_id, invoice_id, description, quantity,
			unit_price, tax_rate, subtotal, tax_amount, total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		it.CompanyID, it.InvoiceID, it.Description, it.Quantity,
		it.UnitPrice, it.TaxRate, it.Subtotal, it.TaxAmount, it.Total,
	).Scan(&it.ID, &it.CreatedAt)
}

func (r *InvoiceRepository) Get(ctx context.Context, companyID, id int) (*models.Invoice, error) {
	inv, err := scanInvoice(r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND company_id = $2`, invoiceColumns),
		id, companyID))
	if err != nil {
		return nil, err
	}

	inv.Items, err = listInvoiceItems(ctx, r.DB, companyID, id)
	if err != nil {
		return nil, err
	}
	inv.Payments, err = listPayments(ctx, r.DB, companyID, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, companyID int, status string) ([]models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE company_id = $1`, invoiceColumns)
	args := []any{companyID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func listInvoiceItems(ctx context.Context, q Querier, companyID, invoiceID int) ([]models.InvoiceItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, company_id, invoice_id, description, quantity, unit_price,
			tax_rate, subtotal, tax_amount, total, created_at
		 FROM invoice_items WHERE invoice_id = $1 AND company_id = $2 ORDER BY id`,
		invoiceID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.CompanyID, &it.InvoiceID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.TaxRate, &it.Subtotal, &it.TaxAmount,
			&it.Total, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func listPayments(ctx context.Context, q Querier, companyID, invoiceID int) ([]models.Payment, error) {
	rows, err := q.Query(ctx,
		`SELECT id, company_id, invoice_id, payment_number, amount, method,
			reference, received_by_id, payment_date, created_at
		 FROM payments WHERE invoice_id = $1 AND company_id = $2 ORDER BY id`,
		invoiceID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.InvoiceID, &p.PaymentNumber,
			&p.Amount, &p.Method, &p.Reference, &p.ReceivedByID, &p.PaymentDate,
			&p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// lockInvoice loads the invoice row FOR UPDATE so the whole
// mutate-and-recalculate sequence sees a stable parent.
func lockInvoice(ctx context.Context, tx pgx.Tx, companyID, invoiceID int) (*models.Invoice, error) {
	return scanInvoice(tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND company_id = $2 FOR UPDATE`, invoiceColumns),
		invoiceID, companyID))
}

// recalcTx is the single source of truth for invoice money: it resums all
// items and payments from storage, derives the status, and overwrites the
// cached totals. It never trusts the previously stored accumulators.
func (r *InvoiceRepository) recalcTx(ctx context.Context, tx pgx.Tx, companyID, invoiceID int, now time.Time) error {
	inv, err := lockInvoice(ctx, tx, companyID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %d is voided", invoiceID)
	}

	items, err := listInvoiceItems(ctx, tx, companyID, invoiceID)
	if err != nil {
		return err
	}
	payments, err := listPayments(ctx, tx, companyID, invoiceID)
	if err != nil {
		return err
	}

	totals := models.SumInvoice(items, payments, inv.DiscountAmount)
	status := models.DeriveInvoiceStatus(totals.BalanceDue, totals.PaidAmount, inv.DueDate, inv.Status, now)

	paidDate := inv.PaidDate
	if status == models.InvoicePaid && paidDate == nil {
		t := now
		paidDate = &t
	}

	_, err = tx.Exec(ctx,
		`UPDATE invoices
		 SET subtotal = $1, tax_amount = $2, total = $3, paid_amount = $4,
		     balance_due = $5, status = $6, paid_date = $7,
		     version = version + 1, updated_at = $8
		 WHERE id = $9 AND company_id = $10`,
		totals.Subtotal, totals.TaxAmount, totals.Total, totals.PaidAmount,
		totals.BalanceDue, status, paidDate, now, invoiceID, companyID)
	return err
}

// Recalculate runs the resum in its own transaction. Idempotent.
func (r *InvoiceRepository) Recalculate(ctx context.Context, companyID, invoiceID int, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.recalcTx(ctx, tx, companyID, invoiceID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AddItem appends a line and recalculates atomically.
func (r *InvoiceRepository) AddItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, it.CompanyID, it.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %d is voided", inv.ID)
	}

	if err := insertInvoiceItem(ctx, tx, it); err != nil {
		return err
	}
	if err := r.recalcTx(ctx, tx, it.CompanyID, it.InvoiceID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *InvoiceRepository) UpdateItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, it.CompanyID, it.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %d is voided", inv.ID)
	}

	it.ComputeTotals()
	tag, err := tx.Exec(ctx,
		`UPDATE invoice_items
		 SET description = $1, quantity = $2, unit_price = $3, tax_rate = $4,
		     subtotal = $5, tax_amount = $6, total = $7
		 WHERE id = $8 AND invoice_id = $9 AND company_id = $10`,
		it.Description, it.Quantity, it.UnitPrice, it.TaxRate,
		it.Subtotal, it.TaxAmount, it.Total,
		it.ID, it.InvoiceID, it.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err := r.recalcTx(ctx, tx, it.CompanyID, it.InvoiceID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *InvoiceRepository) RemoveItem(ctx context.Context, companyID, invoiceID, itemID int, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, companyID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %d is voided", inv.ID)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM invoice_items WHERE id = $1 AND invoice_id = $2 AND company_id = $3`,
		itemID, invoiceID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err := r.recalcTx(ctx, tx, companyID, invoiceID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AddPayment appends the payment, allocates its number, and recalculates,
// all in one transaction. Payments are append-only; there is no update or
// delete path for them.
func (r *InvoiceRepository) AddPayment(ctx context.Context, p *models.Payment, now time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, p.CompanyID, p.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %d is voided", inv.ID)
	}

	number, err := r.Sequence.NextNumber(ctx, tx, p.CompanyID, ScopePayment, now)
	if err != nil {
		return err
	}
	p.PaymentNumber = number

	err = tx.QueryRow(ctx,
		`INSERT INTO payments (company_id, invoice_id, payment_number, amount, method,
			reference, received_by_id, payment_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		p.CompanyID, p.InvoiceID, p.PaymentNumber, p.Amount, p.Method,
		p.Reference, p.ReceivedByID, p.PaymentDate,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Errorf(models.ErrConflict, "payment with reference %q already recorded", p.Reference)
		}
		return err
	}

	if err := r.recalcTx(ctx, tx, p.CompanyID, p.InvoiceID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// OverrideStatus applies the explicit transitions the derivation function
// does not reach (draft->sent, ->voided, manual mark-paid). Predicated on
// the version the caller loaded.
func (r *InvoiceRepository) OverrideStatus(ctx context.Context, inv *models.Invoice, to models.InvoiceStatus, now time.Time) error {
	// A manual mark-paid stamps paid_date the same way the derived-Paid
	// path does.
	tag, err := r.DB.Exec(ctx,
		`UPDATE invoices SET status = $1, version = version + 1, updated_at = $2,
		 paid_date = CASE WHEN $1 = 'paid' THEN COALESCE(paid_date, $2) ELSE paid_date END
		 WHERE id = $3 AND company_id = $4 AND version = $5`,
		to, now, inv.ID, inv.CompanyID, inv.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "invoice %d changed concurrently", inv.ID)
	}
	inv.Status = to
	inv.Version++
	return nil
}

// ListOverdueCandidates returns sent invoices past their due date, across
// all tenants, for the nightly sweep.
func (r *InvoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM invoices
		 WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2
		 AND balance_due > $3`, invoiceColumns),
		models.InvoiceSent, now, decimal.Zero)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}
