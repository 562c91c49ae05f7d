package pg

import (
	"context"
	"time"

	"invoicing-service/internal/application"
	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type itemHeaderRow struct {
	ID           uuid.UUID       `db:"id"`
	Number       string          `db:"number"`
	Date         time.Time       `db:"date"`
	CustomerName string          `db:"customer_name"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type itemDetailRow struct {
	ID                 uuid.UUID       `db:"id"`
	ItemHeaderID       uuid.UUID       `db:"item_header_id"`
	ProductName        string          `db:"product_name"`
	Quantity           int             `db:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage"`
	Subtotal           decimal.Decimal `db:"subtotal"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

var itemHeaders = Table[itemHeaderRow]{
	Name:    "item_headers",
	Key:     "id",
	Columns: []string{"id", "number", "date", "customer_name", "total_amount", "created_at", "updated_at"},
	Fields: map[string]string{
		"id":                              "id",
		application.ItemFieldNumber:       "number",
		application.ItemFieldDate:         "date",
		application.ItemFieldCustomerName: "customer_name",
	},
	Values: func(r itemHeaderRow) map[string]any {
		return map[string]any{
			"id":            r.ID,
			"number":        r.Number,
			"date":          r.Date,
			"customer_name": r.CustomerName,
			"total_amount":  r.TotalAmount,
			"created_at":    r.CreatedAt,
			"updated_at":    r.UpdatedAt,
		}
	},
}

var itemDetails = Table[itemDetailRow]{
	Name: "item_details",
	Key:  "id",
	Columns: []string{"id", "item_header_id", "product_name", "quantity", "unit_price",
		"discount_percentage", "subtotal", "created_at", "updated_at"},
	Fields: map[string]string{
		"id":           "id",
		"itemHeaderId": "item_header_id",
	},
	Values: func(r itemDetailRow) map[string]any {
		return map[string]any{
			"id":                  r.ID,
			"item_header_id":      r.ItemHeaderID,
			"product_name":        r.ProductName,
			"quantity":            r.Quantity,
			"unit_price":          r.UnitPrice,
			"discount_percentage": r.DiscountPercentage,
			"subtotal":            r.Subtotal,
			"created_at":          r.CreatedAt,
			"updated_at":          r.UpdatedAt,
		}
	},
}

// ItemRepo stores the item aggregate across item_headers and item_details.
type ItemRepo struct {
	headers *Repository[itemHeaderRow]
	details *Repository[itemDetailRow]
}

var _ application.ItemRepo = (*ItemRepo)(nil)

func NewItemRepo(db *DB) *ItemRepo { return NewItemRepoWith(db.Pool) }

// NewItemRepoWith reads through read; tests pass a pgxmock pool.
func NewItemRepoWith(read DBTX) *ItemRepo {
	return &ItemRepo{
		headers: NewRepository(read, itemHeaders),
		details: NewRepository(read, itemDetails),
	}
}

func toHeaderRow(it *domain.Item) itemHeaderRow {
	return itemHeaderRow{
		ID:           it.ID,
		Number:       it.Number,
		Date:         it.Date,
		CustomerName: it.CustomerName,
		TotalAmount:  it.TotalAmount,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

func toDetailRows(it *domain.Item) []itemDetailRow {
	out := make([]itemDetailRow, 0, len(it.Details))
	for _, d := range it.Details {
		out = append(out, itemDetailRow{
			ID:                 d.ID,
			ItemHeaderID:       it.ID,
			ProductName:        d.ProductName,
			Quantity:           d.Quantity,
			UnitPrice:          d.UnitPrice,
			DiscountPercentage: d.DiscountPercentage,
			Subtotal:           d.Subtotal,
			CreatedAt:          it.UpdatedAt,
			UpdatedAt:          it.UpdatedAt,
		})
	}
	return out
}

// fromRows rebuilds the aggregate. Subtotals and the total are recomputed
// from the stored line values.
func fromRows(h itemHeaderRow, details []itemDetailRow) domain.Item {
	it := domain.NewItem(h.Number, h.Date, h.CustomerName, h.ID)
	for _, d := range details {
		detail := domain.NewItemDetail(h.ID, d.ProductName, d.Quantity, d.UnitPrice, d.DiscountPercentage, d.ID)
		detail.CreatedAt, detail.UpdatedAt = d.CreatedAt, d.UpdatedAt
		it.AddDetail(detail)
	}
	if len(details) == 0 {
		it.TotalAmount = h.TotalAmount
	}
	it.CreatedAt, it.UpdatedAt = h.CreatedAt, h.UpdatedAt
	return *it
}

func (r *ItemRepo) withDetails(ctx context.Context, headers []itemHeaderRow) ([]domain.Item, error) {
	if len(headers) == 0 {
		return []domain.Item{}, nil
	}
	ids := make([]any, 0, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
	}
	rows, err := r.details.GetInBy(ctx, "itemHeaderId", ids)
	if err != nil {
		return nil, err
	}
	byHeader := make(map[uuid.UUID][]itemDetailRow, len(headers))
	for _, d := range rows {
		byHeader[d.ItemHeaderID] = append(byHeader[d.ItemHeaderID], d)
	}
	out := make([]domain.Item, 0, len(headers))
	for _, h := range headers {
		out = append(out, fromRows(h, byHeader[h.ID]))
	}
	return out, nil
}

func (r *ItemRepo) GetOne(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	h, err := r.headers.GetOne(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	items, err := r.withDetails(ctx, []itemHeaderRow{h})
	if err != nil {
		return domain.Item{}, err
	}
	return items[0], nil
}

func (r *ItemRepo) GetOneBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) (*domain.Item, error) {
	h, err := r.headers.GetOneBy(ctx, cond, opts)
	if err != nil || h == nil {
		return nil, err
	}
	items, err := r.withDetails(ctx, []itemHeaderRow{*h})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *ItemRepo) GetBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) ([]domain.Item, error) {
	headers, err := r.headers.GetBy(ctx, cond, opts)
	if err != nil {
		return nil, err
	}
	return r.withDetails(ctx, headers)
}

func (r *ItemRepo) GetInBy(ctx context.Context, field string, values []any) ([]domain.Item, error) {
	headers, err := r.headers.GetInBy(ctx, field, values)
	if err != nil {
		return nil, err
	}
	return r.withDetails(ctx, headers)
}

// Save upserts the header and replaces its details.
func (r *ItemRepo) Save(ctx context.Context, it *domain.Item) (domain.Item, error) {
	h, err := r.headers.Save(ctx, toHeaderRow(it))
	if err != nil {
		return domain.Item{}, err
	}
	details, err := r.replaceDetails(ctx, it)
	if err != nil {
		return domain.Item{}, err
	}
	return fromRows(h, details), nil
}

func (r *ItemRepo) Update(ctx context.Context, it *domain.Item) (domain.Item, error) {
	h, err := r.headers.Update(ctx, toHeaderRow(it))
	if err != nil {
		return domain.Item{}, err
	}
	details, err := r.replaceDetails(ctx, it)
	if err != nil {
		return domain.Item{}, err
	}
	return fromRows(h, details), nil
}

func (r *ItemRepo) replaceDetails(ctx context.Context, it *domain.Item) ([]itemDetailRow, error) {
	if _, err := r.details.DeleteBy(ctx, criteria.Condition{"itemHeaderId": it.ID}); err != nil {
		return nil, err
	}
	rows := toDetailRows(it)
	saved := make([]itemDetailRow, 0, len(rows))
	for _, d := range rows {
		s, err := r.details.Save(ctx, d)
		if err != nil {
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

// Delete removes the item; details go with it through the foreign key.
func (r *ItemRepo) Delete(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	details, err := r.details.GetBy(ctx, criteria.Condition{"itemHeaderId": id}, criteria.ByOptions{})
	if err != nil {
		return domain.Item{}, err
	}
	h, err := r.headers.Delete(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	return fromRows(h, details), nil
}

// List filters by customer name (substring, case-insensitive), exact number,
// date and id, and a minimum total.
func (r *ItemRepo) List(c criteria.Criteria) criteria.Paginator[domain.Item] {
	base := r.headers.Base()
	f := c.Filter()
	if v, ok := f.String(application.ItemFieldCustomerName); ok {
		base = base.Where(squirrel.ILike{"customer_name": "%" + v + "%"})
	}
	if v, ok := f.String(application.ItemFieldNumber); ok {
		base = base.Where(squirrel.Eq{"number": v})
	}
	if v, ok := f.Get(application.ItemFieldDate); ok {
		base = base.Where(squirrel.Eq{"date": v})
	}
	if v, ok := f.Get(application.ItemFieldID); ok {
		base = base.Where(squirrel.Eq{"id": v})
	}
	if v, ok := f.Get(application.ItemFieldMinTotal); ok {
		base = base.Where(squirrel.GtOrEq{"total_amount": v})
	}
	return itemPaginator{repo: r, headers: List[itemHeaderRow, itemHeaderRow](r.headers, base, c, nil)}
}

// itemPaginator pages headers, then loads the details of that page in one query.
type itemPaginator struct {
	repo    *ItemRepo
	headers *Paginator[itemHeaderRow, itemHeaderRow]
}

func (p itemPaginator) Paginate(ctx context.Context) (criteria.Page[domain.Item], error) {
	page, err := p.headers.Paginate(ctx)
	if err != nil {
		return criteria.Page[domain.Item]{}, err
	}
	items, err := p.repo.withDetails(ctx, page.Data)
	if err != nil {
		return criteria.Page[domain.Item]{}, err
	}
	return criteria.Page[domain.Item]{
		Data:        items,
		Total:       page.Total,
		PerPage:     page.PerPage,
		CurrentPage: page.CurrentPage,
		LastPage:    page.LastPage,
		From:        page.From,
		To:          page.To,
	}, nil
}
