package application

import (
	"fmt"

	"invoicing-service/internal/criteria"
)

const (
	ItemFieldCustomerName = "customerName"
	ItemFieldNumber       = "number"
	ItemFieldDate         = "date"
	ItemFieldID           = "id"
	ItemFieldMinTotal     = "minTotal"
)

// ItemFilter lists the fields a client may filter items by.
var ItemFilter = criteria.Definition{
	Fields: []criteria.Field{
		{Name: ItemFieldCustomerName, Parse: criteria.String},
		{Name: ItemFieldNumber, Parse: criteria.String},
		{Name: ItemFieldDate, Parse: criteria.Date},
		{Name: ItemFieldID, Parse: criteria.UUID},
		{Name: ItemFieldMinTotal, Parse: criteria.Decimal},
	},
}

// ItemSort lists the fields a client may sort items by. Newest first by default.
var ItemSort = criteria.Definition{
	Fields: []criteria.Field{
		{Name: ItemFieldCustomerName},
		{Name: ItemFieldNumber},
		{Name: ItemFieldDate},
	},
	Defaults: []criteria.Default{{Field: ItemFieldDate, Value: "desc"}},
}

// NewItemCriteria builds list criteria from the raw query string and the
// already bound offset and limit.
func NewItemCriteria(rawQuery string, offset, limit *int) (criteria.Criteria, error) {
	q, err := criteria.ParseQuery(rawQuery)
	if err != nil {
		return criteria.Criteria{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	filter, err := criteria.NewFilter(ItemFilter, q.Filter)
	if err != nil {
		return criteria.Criteria{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	page, err := criteria.NewPagination(offset, limit)
	if err != nil {
		return criteria.Criteria{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return criteria.New(filter, criteria.NewSort(ItemSort, q.Sort), page), nil
}
