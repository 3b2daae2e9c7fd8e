package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Number scopes. Each scope counts independently per company per day.
const (
	ScopeSession = "session"
	ScopeJobCard = "jobcard"
	ScopeInvoice = "invoice"
	ScopePayment = "payment"
)

var scopePrefix = map[string]string{
	ScopeSession: "SES",
	ScopeJobCard: "JC",
	ScopeInvoice: "INV",
	ScopePayment: "PAY",
}

// SequenceRepository allocates human-readable document numbers from a
// per-tenant counter row. The upsert increments atomically in the store, so
// concurrent allocations never observe the same value (a COUNT(*)+1 scheme
// would).
type SequenceRepository struct {
	DB *pgxpool.Pool
}

func NewSequenceRepository(db *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{DB: db}
}

// NextNumber returns the next PREFIX-YYYYMMDD-NNNN number for the company.
// Runs on q so callers can allocate inside the same transaction that
// inserts the numbered row.
func (r *SequenceRepository) NextNumber(ctx context.Context, q Querier, companyID int, scope string, day time.Time) (string, error) {
	prefix, ok := scopePrefix[scope]
	if !ok {
		return "", fmt.Errorf("unknown sequence scope %q", scope)
	}

	var next int
	err := q.QueryRow(ctx,
		`INSERT INTO number_sequences (company_id, scope, seq_date, last_value)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (company_id, scope, seq_date)
		 DO UPDATE SET last_value = number_sequences.last_value + 1
		 RETURNING last_value`,
		companyID, scope, day.Format("2006-01-02"),
	).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("failed to get next %s number: %w", scope, err)
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), next), nil
}
