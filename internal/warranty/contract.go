// internal/warranty/contract.go
package warranty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Contract is a warranty agreement. Contracts are compared by identity:
// two contracts built from identical inputs are still different contracts.
type Contract struct {
	id             uuid.UUID
	purchasePrice  decimal.Decimal
	coveredProduct Product
	terms          TermsAndConditions
	claims         []Claim
	status         Status
}

// NewContract creates a pending contract with no claims and a fresh identity.
func NewContract(purchasePrice decimal.Decimal, product Product, terms TermsAndConditions) (*Contract, error) {
	if purchasePrice.IsNegative() {
		return nil, NewValidationError("purchase_price", "must not be negative")
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	return &Contract{
		id:             uuid.New(),
		purchasePrice:  purchasePrice,
		coveredProduct: product,
		terms:          terms,
		claims:         []Claim{},
		status:         StatusPending,
	}, nil
}

// MustNewContract is NewContract for inputs known to be valid.
func MustNewContract(purchasePrice decimal.Decimal, product Product, terms TermsAndConditions) *Contract {
	c, err := NewContract(purchasePrice, product, terms)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Contract) ID() uuid.UUID                          { return c.id }
func (c *Contract) PurchasePrice() decimal.Decimal         { return c.purchasePrice }
func (c *Contract) CoveredProduct() Product                { return c.coveredProduct }
func (c *Contract) TermsAndConditions() TermsAndConditions { return c.terms }
func (c *Contract) Status() Status                         { return c.status }

// Claims returns the filed claims in the order they were added.
func (c *Contract) Claims() []Claim {
	out := make([]Claim, len(c.claims))
	copy(out, c.claims)
	return out
}

// SetStatus replaces the status. No transition graph is enforced.
func (c *Contract) SetStatus(status Status) {
	c.status = status
}

// AddClaim appends a claim. It does not check the liability limit; callers
// ask WithinLimitOfLiability first when they need that guarantee.
func (c *Contract) AddClaim(claim Claim) {
	c.claims = append(c.claims, claim)
}

// ClaimTotal sums the amounts of every filed claim.
func (c *Contract) ClaimTotal() decimal.Decimal {
	total := decimal.Zero
	for _, claim := range c.claims {
		total = total.Add(claim.Amount)
	}
	return total
}

// BaseLiability is the share of the purchase price the terms cover
// before any claim is filed.
func (c *Contract) BaseLiability() decimal.Decimal {
	return c.purchasePrice.Mul(c.terms.LiabilityPercentThreshold).Div(hundred)
}

// LimitOfLiability is the amount still claimable. It shrinks with every
// claim and may go negative.
func (c *Contract) LimitOfLiability() decimal.Decimal {
	return c.BaseLiability().Sub(c.ClaimTotal())
}

// WithinLimitOfLiability reports whether amount is strictly below the
// remaining limit.
func (c *Contract) WithinLimitOfLiability(amount decimal.Decimal) bool {
	return amount.LessThan(c.LimitOfLiability())
}

// InEffectFor reports whether the contract is active and date lies in the
// coverage window.
func (c *Contract) InEffectFor(date time.Time) bool {
	if c.status != StatusActive {
		return false
	}
	return c.terms.Covers(date)
}

// ExtendAnnualSubscription moves the coverage end date one year forward.
func (c *Contract) ExtendAnnualSubscription() {
	c.terms = c.terms.ExtendedByYears(1)
}

// Clone returns a copy sharing this contract's identity. Status and claims
// of the copy can be changed without touching the original.
func (c *Contract) Clone() *Contract {
	clone := *c
	clone.claims = c.Claims()
	return &clone
}

// Equal compares identities only.
func (c *Contract) Equal(other *Contract) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.id == other.id
}

// Restore rebuilds a contract with a known identity, e.g. when replaying
// recorded history.
func Restore(id uuid.UUID, purchasePrice decimal.Decimal, product Product, terms TermsAndConditions, status Status, claims []Claim) *Contract {
	restored := make([]Claim, len(claims))
	copy(restored, claims)
	return &Contract{
		id:             id,
		purchasePrice:  purchasePrice,
		coveredProduct: product,
		terms:          terms,
		claims:         restored,
		status:         status,
	}
}
