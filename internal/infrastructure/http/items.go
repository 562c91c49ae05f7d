package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"invoicing-service/internal/application"
	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
)

type itemRequest struct {
	Number       string              `json:"number" validate:"required,max=50"`
	Date         string              `json:"date" validate:"required,datetime=2006-01-02"`
	CustomerName string              `json:"customerName" validate:"required,max=255"`
	Details      []itemDetailRequest `json:"details" validate:"required,min=1,dive"`
}

type itemDetailRequest struct {
	ProductName        string          `json:"productName" validate:"required,max=255"`
	Quantity           int             `json:"quantity" validate:"gt=0"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

func (req itemRequest) payload() (application.ItemPayload, error) {
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return application.ItemPayload{}, fmt.Errorf("%w: date: %w", application.ErrBadRequest, err)
	}
	p := application.ItemPayload{
		Number:       req.Number,
		Date:         date,
		CustomerName: req.CustomerName,
		Details:      make([]application.ItemDetailPayload, 0, len(req.Details)),
	}
	for _, d := range req.Details {
		p.Details = append(p.Details, application.ItemDetailPayload{
			ProductName:        d.ProductName,
			Quantity:           d.Quantity,
			UnitPrice:          d.UnitPrice,
			DiscountPercentage: d.DiscountPercentage,
		})
	}
	return p, nil
}

type itemDetailResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductName        string          `json:"productName"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

type itemResponse struct {
	ID           uuid.UUID            `json:"id"`
	Number       string               `json:"number"`
	Date         string               `json:"date"`
	CustomerName string               `json:"customerName"`
	TotalAmount  decimal.Decimal      `json:"totalAmount"`
	Status       domain.ItemStatus    `json:"status"`
	Details      []itemDetailResponse `json:"details,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toItemResponse(it domain.Item) itemResponse {
	resp := itemResponse{
		ID:           it.ID,
		Number:       it.Number,
		Date:         it.Date.Format(time.DateOnly),
		CustomerName: it.CustomerName,
		TotalAmount:  it.TotalAmount,
		Status:       domain.CalculateStatus(&it, time.Now().UTC(), nil, nil),
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
	for _, d := range it.Details {
		resp.Details = append(resp.Details, itemDetailResponse{
			ID:                 d.ID,
			ProductName:        d.ProductName,
			Quantity:           d.Quantity,
			UnitPrice:          d.UnitPrice,
			DiscountPercentage: d.DiscountPercentage,
			DiscountAmount:     d.DiscountAmount(),
			Subtotal:           d.Subtotal,
		})
	}
	return resp
}

func (s *Server) decodeItem(r *http.Request) (application.ItemPayload, error) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return application.ItemPayload{}, fmt.Errorf("%w: invalid JSON body", application.ErrBadRequest)
	}
	if err := s.validate.Struct(req); err != nil {
		return application.ItemPayload{}, err
	}
	return req.payload()
}

func itemID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid item id", application.ErrBadRequest)
	}
	return id, nil
}

func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	p, err := s.decodeItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var key *string
	if k := r.Header.Get("X-Idempotency-Key"); k != "" {
		key = &k
	}
	it, err := s.items.Save(r.Context(), p, key)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(it))
}

func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	it, err := s.items.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := s.decodeItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	it, err := s.items.Update(r.Context(), id, p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	it, err := s.items.Delete(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// ListItems accepts filter[field], sort[field], offset and limit.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	var offset, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &offset); err != nil {
		badRequest(w, fmt.Sprintf("invalid offset: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		badRequest(w, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	c, err := application.NewItemCriteria(r.URL.RawQuery, offset, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := s.items.List(r.Context(), c)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, criteria.MapPage(page, toItemResponse))
}
