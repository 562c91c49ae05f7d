package domain

import (
	"math"
	"time"
)

type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "DRAFT"
	ItemStatusConfirmed ItemStatus = "CONFIRMED"
	ItemStatusPaid      ItemStatus = "PAID"
	ItemStatusCancelled ItemStatus = "CANCELLED"
	ItemStatusOverdue   ItemStatus = "OVERDUE"
)

// OverdueAfterDays is how old an unpaid item may get before it is overdue.
const OverdueAfterDays = 30

var transitions = map[ItemStatus][]ItemStatus{
	ItemStatusDraft:     {ItemStatusConfirmed, ItemStatusCancelled},
	ItemStatusConfirmed: {ItemStatusPaid, ItemStatusCancelled, ItemStatusOverdue},
	ItemStatusOverdue:   {ItemStatusPaid, ItemStatusCancelled},
}

// CalculateStatus derives the status of i at now. Cancellation wins over
// payment, payment over age.
func CalculateStatus(i *Item, now time.Time, paidAt, cancelledAt *time.Time) ItemStatus {
	switch {
	case cancelledAt != nil:
		return ItemStatusCancelled
	case paidAt != nil:
		return ItemStatusPaid
	case daysBetween(i.Date, now) > OverdueAfterDays:
		return ItemStatusOverdue
	case i.HasDetails():
		return ItemStatusConfirmed
	default:
		return ItemStatusDraft
	}
}

func daysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanModify is true for DRAFT and CONFIRMED items.
func (s ItemStatus) CanModify() bool {
	return s == ItemStatusDraft || s == ItemStatusConfirmed
}

func (s ItemStatus) Description() string {
	switch s {
	case ItemStatusDraft:
		return "item is in draft state and can be modified"
	case ItemStatusConfirmed:
		return "item is confirmed and awaiting payment"
	case ItemStatusPaid:
		return "item has been paid"
	case ItemStatusCancelled:
		return "item has been cancelled"
	case ItemStatusOverdue:
		return "item is overdue for payment"
	default:
		return "unknown status"
	}
}
