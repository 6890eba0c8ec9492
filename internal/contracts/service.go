// internal/contracts/service.go
package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warranty/internal/eventstore"
	"warranty/internal/warranty"
)

// Service defines the interface for the contracts service.
type Service interface {
	RegisterContract(ctx context.Context, purchasePrice decimal.Decimal, product warranty.Product, terms warranty.TermsAndConditions) (*warranty.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*warranty.Contract, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status warranty.Status) (*warranty.Contract, error)
	FileClaim(ctx context.Context, id uuid.UUID, amount decimal.Decimal, dateFiled time.Time) (*warranty.Contract, error)
	ExtendSubscription(ctx context.Context, id uuid.UUID) (*warranty.Contract, error)
	CheckCoverage(ctx context.Context, id uuid.UUID, date time.Time) (*Coverage, error)
	History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error)
	Rebuild(ctx context.Context, id uuid.UUID) (*warranty.Contract, error)
}
