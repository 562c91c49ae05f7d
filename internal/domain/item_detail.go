package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineAmount caps quantity times unit price for a single detail.
var MaxLineAmount = decimal.NewFromInt(1_000_000)

var hundred = decimal.NewFromInt(100)

type ItemDetail struct {
	ID                 uuid.UUID
	ItemHeaderID       uuid.UUID
	ProductName        string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	Subtotal           decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewItemDetail builds a detail and computes its subtotal. A zero id gets a
// fresh one.
func NewItemDetail(headerID uuid.UUID, product string, qty int, unitPrice, discount decimal.Decimal, id uuid.UUID) ItemDetail {
	if id == uuid.Nil {
		id = uuid.New()
	}
	d := ItemDetail{
		ID:                 id,
		ItemHeaderID:       headerID,
		ProductName:        product,
		Quantity:           qty,
		UnitPrice:          unitPrice,
		DiscountPercentage: discount,
	}
	d.Subtotal = d.subtotal()
	return d
}

func (d ItemDetail) base() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// DiscountAmount is the part of the base amount removed by the discount,
// rounded to cents.
func (d ItemDetail) DiscountAmount() decimal.Decimal {
	return d.base().Mul(d.DiscountPercentage).Div(hundred).Round(2)
}

func (d ItemDetail) subtotal() decimal.Decimal {
	base := d.base()
	return base.Sub(base.Mul(d.DiscountPercentage).Div(hundred)).Round(2)
}

func (d ItemDetail) HasDiscount() bool { return d.DiscountPercentage.IsPositive() }

func (d ItemDetail) Validate() error {
	switch {
	case strings.TrimSpace(d.ProductName) == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidDetail)
	case d.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidDetail)
	case !d.UnitPrice.IsPositive():
		return fmt.Errorf("%w: unit price must be greater than zero", ErrInvalidDetail)
	case d.DiscountPercentage.IsNegative() || d.DiscountPercentage.GreaterThan(hundred):
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", ErrInvalidDetail)
	case d.base().GreaterThan(MaxLineAmount):
		return fmt.Errorf("%w: line total exceeds maximum allowed (%s)", ErrInvalidDetail, MaxLineAmount)
	}
	return nil
}
