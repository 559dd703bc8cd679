package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anahq/ana/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Analysis Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.AnalysisRun) error {
	failures, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_runs (id, source, job_name, workflow_run_id, pr_number, summary, total_failures, failures, analysis_date, delivery_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Source, run.JobName, run.WorkflowRunID, run.PRNumber, run.Summary,
		run.TotalFailures, failures, run.AnalysisDate, run.DeliveryStatus, run.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create analysis run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, job_name, workflow_run_id, pr_number, summary, total_failures, failures, analysis_date, delivery_status, delivery_error, delivered_at, created_at
		 FROM analysis_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis run: %w", err)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*models.AnalysisRun, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"1=1"}
	var args []any
	argIdx := 1

	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argIdx))
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.DeliveryStatus != "" {
		conditions = append(conditions, fmt.Sprintf("delivery_status = $%d", argIdx))
		args = append(args, filter.DeliveryStatus)
		argIdx++
	}
	if filter.PRNumber > 0 {
		conditions = append(conditions, fmt.Sprintf("pr_number = $%d", argIdx))
		args = append(args, filter.PRNumber)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	// Count query
	var total int
	countQuery := "SELECT COUNT(*) FROM analysis_runs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analysis runs: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	// Data query
	dataQuery := fmt.Sprintf(
		`SELECT id, source, job_name, workflow_run_id, pr_number, summary, total_failures, failures, analysis_date, delivery_status, delivery_error, delivered_at, created_at
		 FROM analysis_runs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *PostgresStore) UpdateRunDelivery(ctx context.Context, id uuid.UUID, status string, opts ...DeliveryUpdateOption) error {
	var params deliveryUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	sets := []string{"delivery_status = $2"}
	args := []any{id, status}
	argIdx := 3

	if params.DeliveryError != nil {
		sets = append(sets, fmt.Sprintf("delivery_error = $%d", argIdx))
		args = append(args, *params.DeliveryError)
		argIdx++
	}
	if params.DeliveredAt != nil {
		sets = append(sets, fmt.Sprintf("delivered_at = $%d", argIdx))
		args = append(args, *params.DeliveredAt)
		argIdx++
	}

	query := fmt.Sprintf("UPDATE analysis_runs SET %s WHERE id = $1", strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanRun reads one analysis_runs row, decoding the failures JSONB column.
func scanRun(row pgx.Row) (*models.AnalysisRun, error) {
	var (
		run      models.AnalysisRun
		failures []byte
	)
	err := row.Scan(&run.ID, &run.Source, &run.JobName, &run.WorkflowRunID, &run.PRNumber,
		&run.Summary, &run.TotalFailures, &failures, &run.AnalysisDate,
		&run.DeliveryStatus, &run.DeliveryError, &run.DeliveredAt, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(failures, &run.Failures); err != nil {
		return nil, fmt.Errorf("decode failures: %w", err)
	}
	return &run, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
