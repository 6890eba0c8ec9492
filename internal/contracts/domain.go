// internal/contracts/domain.go
package contracts

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warranty/internal/warranty"
)

const aggregateType = "contract"

// Event types recorded for a contract.
const (
	EventContractRegistered    = "ContractRegistered"
	EventContractStatusChanged = "ContractStatusChanged"
	EventClaimFiled            = "ClaimFiled"
	EventSubscriptionExtended  = "SubscriptionExtended"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractExists   = errors.New("contract already exists")
	ErrNotInEffect      = errors.New("contract is not in effect on the claim date")
	ErrExceedsLiability = errors.New("claim amount exceeds the remaining limit of liability")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// ContractView is the read representation of a contract, including the
// figures derived from its claims.
type ContractView struct {
	ID                 uuid.UUID                   `json:"id"`
	PurchasePrice      decimal.Decimal             `json:"purchase_price"`
	CoveredProduct     warranty.Product            `json:"covered_product"`
	TermsAndConditions warranty.TermsAndConditions `json:"terms_and_conditions"`
	Status             warranty.Status             `json:"status"`
	Claims             []warranty.Claim            `json:"claims"`
	ClaimTotal         decimal.Decimal             `json:"claim_total"`
	LimitOfLiability   decimal.Decimal             `json:"limit_of_liability"`
}

// NewContractView captures c's current state.
func NewContractView(c *warranty.Contract) ContractView {
	return ContractView{
		ID:                 c.ID(),
		PurchasePrice:      c.PurchasePrice(),
		CoveredProduct:     c.CoveredProduct(),
		TermsAndConditions: c.TermsAndConditions(),
		Status:             c.Status(),
		Claims:             c.Claims(),
		ClaimTotal:         c.ClaimTotal(),
		LimitOfLiability:   c.LimitOfLiability(),
	}
}

// Coverage answers whether a contract pays out on a given day and how much
// headroom is left.
type Coverage struct {
	ContractID       uuid.UUID       `json:"contract_id"`
	Date             time.Time       `json:"date"`
	InEffect         bool            `json:"in_effect"`
	ClaimTotal       decimal.Decimal `json:"claim_total"`
	LimitOfLiability decimal.Decimal `json:"limit_of_liability"`
}

// ContractRegisteredEvent is recorded when a contract is created.
type ContractRegisteredEvent struct {
	ContractID    uuid.UUID                   `json:"contract_id"`
	PurchasePrice decimal.Decimal             `json:"purchase_price"`
	Product       warranty.Product            `json:"product"`
	Terms         warranty.TermsAndConditions `json:"terms"`
	Status        warranty.Status             `json:"status"`
}

// ContractStatusChangedEvent is recorded on every status reassignment.
type ContractStatusChangedEvent struct {
	ContractID uuid.UUID       `json:"contract_id"`
	From       warranty.Status `json:"from"`
	To         warranty.Status `json:"to"`
}

// ClaimFiledEvent is recorded when a claim is accepted.
type ClaimFiledEvent struct {
	ContractID     uuid.UUID       `json:"contract_id"`
	Amount         decimal.Decimal `json:"amount"`
	DateFiled      time.Time       `json:"date_filed"`
	RemainingLimit decimal.Decimal `json:"remaining_limit"`
}

// SubscriptionExtendedEvent is recorded when coverage is extended.
type SubscriptionExtendedEvent struct {
	ContractID         uuid.UUID `json:"contract_id"`
	NewCoverageEndDate time.Time `json:"new_coverage_end_date"`
}
