// internal/contracts/implementation.go
package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"warranty/internal/eventstore"
	"warranty/internal/logger"
	"warranty/internal/shared"
	"warranty/internal/warranty"
)

// service implements the Service interface.
type service struct {
	eventStore   *eventstore.EventStore
	repo         *Repository
	clock        shared.Clock
	claimLimiter *rate.Limiter
	log          *logger.Logger
	tracer       trace.Tracer
	claimsFiled  metric.Int64Counter
}

// NewService creates a new contracts service instance. A nil limiter
// disables claim throttling.
func NewService(es *eventstore.EventStore, repo *Repository, clock shared.Clock, claimLimiter *rate.Limiter, log *logger.Logger) Service {
	if claimLimiter == nil {
		claimLimiter = rate.NewLimiter(rate.Inf, 0)
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}

	claimsFiled, err := otel.Meter("warranty/contracts").Int64Counter(
		"warranty.claims.filed",
		metric.WithDescription("Claims filed against contracts, by outcome"),
	)
	if err != nil {
		log.Warn("failed to create claims counter", "error", err)
		claimsFiled = noop.Int64Counter{}
	}

	return &service{
		eventStore:   es,
		repo:         repo,
		clock:        clock,
		claimLimiter: claimLimiter,
		log:          log.With("component", "contracts"),
		tracer:       otel.Tracer("warranty/contracts"),
		claimsFiled:  claimsFiled,
	}
}

// RegisterContract creates a pending contract and records its registration.
func (s *service) RegisterContract(ctx context.Context, purchasePrice decimal.Decimal, product warranty.Product, terms warranty.TermsAndConditions) (*warranty.Contract, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.register")
	defer span.End()

	contract, err := warranty.NewContract(purchasePrice, product, terms)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("contract.id", contract.ID().String()))

	eventData := ContractRegisteredEvent{
		ContractID:    contract.ID(),
		PurchasePrice: contract.PurchasePrice(),
		Product:       contract.CoveredProduct(),
		Terms:         contract.TermsAndConditions(),
		Status:        contract.Status(),
	}
	if err := s.appendEvent(ctx, contract.ID(), 0, EventContractRegistered, eventData); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.repo.Add(contract, 1); err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	s.log.Info("contract registered",
		"contract_id", contract.ID(),
		"product", product.ID,
		"purchase_price", purchasePrice.String(),
	)
	return contract, nil
}

// GetContract returns a snapshot of the contract.
func (s *service) GetContract(ctx context.Context, id uuid.UUID) (*warranty.Contract, error) {
	return s.repo.Get(id)
}

// ChangeStatus reassigns the contract status. Any non-empty tag is accepted.
func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, status warranty.Status) (*warranty.Contract, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.change_status", trace.WithAttributes(
		attribute.String("contract.id", id.String()),
		attribute.String("contract.status", status.String()),
	))
	defer span.End()

	if status == "" {
		return nil, warranty.NewValidationError("status", "must not be empty")
	}

	var from warranty.Status
	contract, err := s.repo.Update(id, func(c *warranty.Contract, version int) (int, error) {
		from = c.Status()
		c.SetStatus(status)
		eventData := ContractStatusChangedEvent{ContractID: id, From: from, To: status}
		if err := s.appendEvent(ctx, id, version, EventContractStatusChanged, eventData); err != nil {
			return 0, err
		}
		return version + 1, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info("contract status changed", "contract_id", id, "from", from, "to", status)
	return contract, nil
}

// FileClaim adds a claim when the contract is in effect on dateFiled and
// the amount is below the remaining limit of liability. A zero dateFiled
// means today.
func (s *service) FileClaim(ctx context.Context, id uuid.UUID, amount decimal.Decimal, dateFiled time.Time) (*warranty.Contract, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.file_claim", trace.WithAttributes(
		attribute.String("contract.id", id.String()),
		attribute.String("claim.amount", amount.String()),
	))
	defer span.End()

	if !s.claimLimiter.Allow() {
		s.recordClaim(ctx, "rate_limited")
		return nil, ErrRateLimited
	}

	if dateFiled.IsZero() {
		dateFiled = s.clock.Now()
	}
	claim, err := warranty.NewClaim(amount, dateFiled)
	if err != nil {
		s.recordClaim(ctx, "invalid")
		return nil, err
	}

	contract, err := s.repo.Update(id, func(c *warranty.Contract, version int) (int, error) {
		if !c.InEffectFor(claim.DateFiled) {
			return 0, ErrNotInEffect
		}
		if !c.WithinLimitOfLiability(claim.Amount) {
			return 0, ErrExceedsLiability
		}
		c.AddClaim(claim)

		eventData := ClaimFiledEvent{
			ContractID:     id,
			Amount:         claim.Amount,
			DateFiled:      claim.DateFiled,
			RemainingLimit: c.LimitOfLiability(),
		}
		if err := s.appendEvent(ctx, id, version, EventClaimFiled, eventData); err != nil {
			return 0, err
		}
		return version + 1, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.recordClaim(ctx, "rejected")
		s.log.Warn("claim rejected", "contract_id", id, "amount", amount.String(), "error", err)
		return nil, err
	}

	s.recordClaim(ctx, "accepted")
	s.log.Info("claim filed",
		"contract_id", id,
		"amount", amount.String(),
		"remaining_limit", contract.LimitOfLiability().String(),
	)
	return contract, nil
}

// ExtendSubscription pushes the coverage end date one year forward and
// snapshots the resulting state.
func (s *service) ExtendSubscription(ctx context.Context, id uuid.UUID) (*warranty.Contract, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.extend_subscription", trace.WithAttributes(
		attribute.String("contract.id", id.String()),
	))
	defer span.End()

	contract, err := s.repo.Update(id, func(c *warranty.Contract, version int) (int, error) {
		c.ExtendAnnualSubscription()
		eventData := SubscriptionExtendedEvent{
			ContractID:         id,
			NewCoverageEndDate: c.TermsAndConditions().CoverageEndDate,
		}
		if err := s.appendEvent(ctx, id, version, EventSubscriptionExtended, eventData); err != nil {
			return 0, err
		}
		if err := s.saveSnapshot(ctx, c, version+1); err != nil {
			s.log.Warn("failed to save snapshot", "contract_id", id, "error", err)
		}
		return version + 1, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info("subscription extended",
		"contract_id", id,
		"coverage_end_date", contract.TermsAndConditions().CoverageEndDate.Format(time.DateOnly),
	)
	return contract, nil
}

// CheckCoverage reports whether the contract is in effect on date and the
// remaining limit. A zero date means today.
func (s *service) CheckCoverage(ctx context.Context, id uuid.UUID, date time.Time) (*Coverage, error) {
	contract, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.clock.Now()
	}

	return &Coverage{
		ContractID:       id,
		Date:             warranty.CalendarDay(date),
		InEffect:         contract.InEffectFor(date),
		ClaimTotal:       contract.ClaimTotal(),
		LimitOfLiability: contract.LimitOfLiability(),
	}, nil
}

// History returns every recorded event of the contract in version order.
func (s *service) History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	if _, err := s.repo.Get(id); err != nil {
		return nil, err
	}
	events, err := s.eventStore.LoadEvents(ctx, id, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

func (s *service) appendEvent(ctx context.Context, id uuid.UUID, expectedVersion int, eventType string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		EventType: eventType,
		EventData: jsonData,
	}
	if err := s.eventStore.AppendEvents(ctx, id, aggregateType, expectedVersion, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *service) recordClaim(ctx context.Context, outcome string) {
	s.claimsFiled.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
