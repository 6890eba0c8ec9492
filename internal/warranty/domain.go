// internal/warranty/domain.go
package warranty

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the administrative state of a contract. It is an open tag:
// collaborators may set any value and the contract keeps it as given.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string { return string(s) }

// Product is the covered item. It is treated as an opaque value.
type Product struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	ModelNumber  string `json:"model_number"`
}

// NewProduct creates a product value.
func NewProduct(name, id, manufacturer, modelNumber string) Product {
	return Product{
		Name:         name,
		ID:           id,
		Manufacturer: manufacturer,
		ModelNumber:  modelNumber,
	}
}

// Equal reports whether both products carry the same fields.
func (p Product) Equal(other Product) bool {
	return p == other
}

// TermsAndConditions describes the coverage window and the liability
// threshold governing a contract.
type TermsAndConditions struct {
	PurchaseDate              time.Time       `json:"purchase_date"`
	CoverageStartDate         time.Time       `json:"coverage_start_date"`
	CoverageEndDate           time.Time       `json:"coverage_end_date"`
	LiabilityPercentThreshold decimal.Decimal `json:"liability_percent_threshold"`
}

// NewTermsAndConditions validates and normalizes the terms. Dates are
// reduced to their calendar day.
func NewTermsAndConditions(purchaseDate, coverageStart, coverageEnd time.Time, threshold decimal.Decimal) (TermsAndConditions, error) {
	terms := TermsAndConditions{
		PurchaseDate:              CalendarDay(purchaseDate),
		CoverageStartDate:         CalendarDay(coverageStart),
		CoverageEndDate:           CalendarDay(coverageEnd),
		LiabilityPercentThreshold: threshold,
	}
	if err := terms.Validate(); err != nil {
		return TermsAndConditions{}, err
	}
	return terms, nil
}

// MustNewTermsAndConditions is NewTermsAndConditions for inputs known to be valid.
func MustNewTermsAndConditions(purchaseDate, coverageStart, coverageEnd time.Time, threshold decimal.Decimal) TermsAndConditions {
	terms, err := NewTermsAndConditions(purchaseDate, coverageStart, coverageEnd, threshold)
	if err != nil {
		panic(err)
	}
	return terms
}

// Validate checks the coverage window and the threshold range (0, 100].
func (t TermsAndConditions) Validate() error {
	if t.CoverageStartDate.After(t.CoverageEndDate) {
		return NewValidationError("coverage_start_date", "must not be after coverage_end_date")
	}
	if !t.LiabilityPercentThreshold.IsPositive() || t.LiabilityPercentThreshold.GreaterThan(hundred) {
		return NewValidationError("liability_percent_threshold", "must be in (0, 100]")
	}
	return nil
}

// Equal compares all four fields.
func (t TermsAndConditions) Equal(other TermsAndConditions) bool {
	return sameDay(t.PurchaseDate, other.PurchaseDate) &&
		sameDay(t.CoverageStartDate, other.CoverageStartDate) &&
		sameDay(t.CoverageEndDate, other.CoverageEndDate) &&
		t.LiabilityPercentThreshold.Equal(other.LiabilityPercentThreshold)
}

// Covers reports whether date falls inside the coverage window, both
// bounds included.
func (t TermsAndConditions) Covers(date time.Time) bool {
	day := CalendarDay(date)
	return !day.Before(t.CoverageStartDate) && !day.After(t.CoverageEndDate)
}

// ExtendedByYears returns a copy whose coverage end date is moved years
// forward. The other fields are untouched.
func (t TermsAndConditions) ExtendedByYears(years int) TermsAndConditions {
	t.CoverageEndDate = AddYears(t.CoverageEndDate, years)
	return t
}

// Claim is a single liability event filed against a contract.
type Claim struct {
	Amount    decimal.Decimal `json:"amount"`
	DateFiled time.Time       `json:"date_filed"`
}

// NewClaim creates a claim. Negative amounts are rejected.
func NewClaim(amount decimal.Decimal, dateFiled time.Time) (Claim, error) {
	if amount.IsNegative() {
		return Claim{}, NewValidationError("amount", "must not be negative")
	}
	return Claim{Amount: amount, DateFiled: CalendarDay(dateFiled)}, nil
}

// MustNewClaim is NewClaim for inputs known to be valid.
func MustNewClaim(amount decimal.Decimal, dateFiled time.Time) Claim {
	claim, err := NewClaim(amount, dateFiled)
	if err != nil {
		panic(err)
	}
	return claim
}

// Equal compares amount and filing date.
func (c Claim) Equal(other Claim) bool {
	return c.Amount.Equal(other.Amount) && sameDay(c.DateFiled, other.DateFiled)
}
