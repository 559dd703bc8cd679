package store

import (
	"context"
	"errors"
	"time"

	"github.com/anahq/ana/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.AnalysisRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.AnalysisRun, int, error)
	UpdateRunDelivery(ctx context.Context, id uuid.UUID, status string, opts ...DeliveryUpdateOption) error
}

// RunFilter narrows ListRuns results. Zero fields are ignored.
type RunFilter struct {
	Source         string
	DeliveryStatus string
	PRNumber       int
	Since          time.Time
	Page           int
	Limit          int
}

type deliveryUpdateParams struct {
	DeliveryError *string
	DeliveredAt   *time.Time
}

type DeliveryUpdateOption func(*deliveryUpdateParams)

func WithDeliveryError(msg string) DeliveryUpdateOption {
	return func(p *deliveryUpdateParams) {
		p.DeliveryError = &msg
	}
}

func WithDeliveredAt(at time.Time) DeliveryUpdateOption {
	return func(p *deliveryUpdateParams) {
		p.DeliveredAt = &at
	}
}
