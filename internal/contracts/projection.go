package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warranty/internal/eventstore"
	"warranty/internal/warranty"
)

// contractState is the serialized form of a contract inside snapshots.
type contractState struct {
	ID            uuid.UUID                   `json:"id"`
	PurchasePrice decimal.Decimal             `json:"purchase_price"`
	Product       warranty.Product            `json:"product"`
	Terms         warranty.TermsAndConditions `json:"terms"`
	Status        warranty.Status             `json:"status"`
	Claims        []warranty.Claim            `json:"claims"`
}

func stateOf(c *warranty.Contract) contractState {
	return contractState{
		ID:            c.ID(),
		PurchasePrice: c.PurchasePrice(),
		Product:       c.CoveredProduct(),
		Terms:         c.TermsAndConditions(),
		Status:        c.Status(),
		Claims:        c.Claims(),
	}
}

func (st contractState) restore() *warranty.Contract {
	return warranty.Restore(st.ID, st.PurchasePrice, st.Product, st.Terms, st.Status, st.Claims)
}

func (s *service) saveSnapshot(ctx context.Context, c *warranty.Contract, version int) error {
	state, err := json.Marshal(stateOf(c))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.eventStore.SaveSnapshot(ctx, eventstore.Snapshot{
		AggregateID:   c.ID(),
		AggregateType: aggregateType,
		Version:       version,
		State:         state,
	})
}

// Rebuild reconstructs a contract from its latest snapshot and the events
// recorded after it, independently of the in-memory repository.
func (s *service) Rebuild(ctx context.Context, id uuid.UUID) (*warranty.Contract, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.rebuild")
	defer span.End()

	var contract *warranty.Contract
	fromVersion := 1

	snapshot, err := s.eventStore.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot != nil {
		var st contractState
		if err := json.Unmarshal(snapshot.State, &st); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		contract = st.restore()
		fromVersion = snapshot.Version + 1
	}

	events, err := s.eventStore.LoadEvents(ctx, id, fromVersion, 0)
	if errors.Is(err, eventstore.ErrAggregateNotFound) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	for _, event := range events {
		contract, err = apply(contract, event)
		if err != nil {
			return nil, err
		}
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	return contract, nil
}

func apply(c *warranty.Contract, event eventstore.Event) (*warranty.Contract, error) {
	if c == nil && event.EventType != EventContractRegistered {
		return nil, fmt.Errorf("event %s at version %d precedes registration", event.EventType, event.Version)
	}

	switch event.EventType {
	case EventContractRegistered:
		var e ContractRegisteredEvent
		if err := json.Unmarshal(event.EventData, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", event.EventType, err)
		}
		return warranty.Restore(e.ContractID, e.PurchasePrice, e.Product, e.Terms, e.Status, nil), nil

	case EventContractStatusChanged:
		var e ContractStatusChangedEvent
		if err := json.Unmarshal(event.EventData, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", event.EventType, err)
		}
		c.SetStatus(e.To)

	case EventClaimFiled:
		var e ClaimFiledEvent
		if err := json.Unmarshal(event.EventData, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", event.EventType, err)
		}
		c.AddClaim(warranty.Claim{Amount: e.Amount, DateFiled: e.DateFiled})

	case EventSubscriptionExtended:
		c.ExtendAnnualSubscription()

	default:
		return nil, fmt.Errorf("unknown event type %q", event.EventType)
	}
	return c, nil
}
