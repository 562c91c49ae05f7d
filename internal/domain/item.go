package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxItemAmount caps the total of one item.
var MaxItemAmount = decimal.NewFromInt(10_000_000)

// Item is the invoice header aggregate. TotalAmount always equals the sum of
// the detail subtotals.
type Item struct {
	ID           uuid.UUID
	Number       string
	Date         time.Time
	CustomerName string
	TotalAmount  decimal.Decimal
	Details      []ItemDetail
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewItem(number string, date time.Time, customer string, id uuid.UUID) *Item {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Item{
		ID:           id,
		Number:       number,
		Date:         date,
		CustomerName: customer,
		TotalAmount:  decimal.Zero,
	}
}

func (i *Item) AddDetail(d ItemDetail) {
	d.ItemHeaderID = i.ID
	i.Details = append(i.Details, d)
	i.recalculate()
}

func (i *Item) RemoveDetail(id uuid.UUID) error {
	for n, d := range i.Details {
		if d.ID == id {
			i.Details = append(i.Details[:n], i.Details[n+1:]...)
			i.recalculate()
			return nil
		}
	}
	return fmt.Errorf("%w: detail %s not found", ErrInvalidItem, id)
}

func (i *Item) UpdateCustomerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: customer name cannot be empty", ErrInvalidItem)
	}
	i.CustomerName = name
	return nil
}

func (i *Item) recalculate() {
	total := decimal.Zero
	for _, d := range i.Details {
		total = total.Add(d.Subtotal)
	}
	i.TotalAmount = total
}

func (i *Item) HasDetails() bool { return len(i.Details) > 0 }
func (i *Item) DetailCount() int { return len(i.Details) }

// CheckAmount enforces the total bounds: strictly positive and at most MaxItemAmount.
func (i *Item) CheckAmount() error {
	if !i.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be greater than zero", ErrInvalidItem)
	}
	if i.TotalAmount.GreaterThan(MaxItemAmount) {
		return fmt.Errorf("%w: total amount exceeds maximum allowed (%s)", ErrInvalidItem, MaxItemAmount)
	}
	return nil
}
