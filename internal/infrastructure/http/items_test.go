package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoicing-service/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func today() time.Time { return time.Now().UTC().Truncate(24 * time.Hour) }

func itemBody(number string) map[string]any {
	return map[string]any{
		"number":       number,
		"date":         today().Format(time.DateOnly),
		"customerName": "Jane Doe",
		"details": []map[string]any{
			{"productName": "Widget", "quantity": 2, "unitPrice": "50.00", "discountPercentage": "10"},
		},
	}
}

func storedItem(number, customer string) domain.Item {
	it := domain.NewItem(number, today(), customer, uuid.New())
	it.AddDetail(domain.NewItemDetail(it.ID, "Bolt", 1, decimal.NewFromInt(10), decimal.Zero, uuid.Nil))
	return *it
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type itemJSON struct {
	ID          uuid.UUID       `json:"id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	Details     []struct {
		DiscountAmount decimal.Decimal `json:"discountAmount"`
		Subtotal       decimal.Decimal `json:"subtotal"`
	} `json:"details"`
}

func TestCreateItem(t *testing.T) {
	env := newTestEnv()
	rec := do(t, env.handler, http.MethodPost, "/items", itemBody("INV-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got itemJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "INV-1", got.Number)
	require.Equal(t, "CONFIRMED", got.Status)
	require.True(t, decimal.NewFromInt(90).Equal(got.TotalAmount))
	require.Len(t, got.Details, 1)
	require.True(t, decimal.NewFromInt(10).Equal(got.Details[0].DiscountAmount))
	require.Contains(t, env.repo.items, got.ID)

	begins, commits, rollbacks, releases := env.tx.counts()
	require.Equal(t, []int{1, 1, 0, 1}, []int{begins, commits, rollbacks, releases})
}

func TestCreateItem_Rejections(t *testing.T) {
	future := itemBody("INV-2")
	future["date"] = today().AddDate(0, 0, 3).Format(time.DateOnly)

	noDetails := itemBody("INV-3")
	noDetails["details"] = []map[string]any{}

	badDate := itemBody("INV-4")
	badDate["date"] = "03/01/2024"

	tooMuch := itemBody("INV-5")
	tooMuch["details"] = []map[string]any{{"productName": "Yacht", "quantity": 1, "unitPrice": "2000000"}}

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", "not an object", http.StatusBadRequest},
		{"missing details", noDetails, http.StatusUnprocessableEntity},
		{"bad date format", badDate, http.StatusUnprocessableEntity},
		{"date in the future", future, http.StatusUnprocessableEntity},
		{"line over maximum", tooMuch, http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv()
			rec := do(t, env.handler, http.MethodPost, "/items", c.body)
			require.Equal(t, c.status, rec.Code, rec.Body.String())
			require.Empty(t, env.repo.items)
			_, commits, rollbacks, _ := env.tx.counts()
			require.Equal(t, 0, commits)
			require.Equal(t, 1, rollbacks)
		})
	}
}

func TestCreateItem_DuplicateNumberConflicts(t *testing.T) {
	env := newTestEnv(storedItem("INV-1", "Acme"))
	rec := do(t, env.handler, http.MethodPost, "/items", itemBody("INV-1"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, env.repo.items, 1)
}

func TestCreateItem_CommitFailure(t *testing.T) {
	env := newTestEnv()
	env.tx.commitErr = fmt.Errorf("connection reset")
	rec := do(t, env.handler, http.MethodPost, "/items", itemBody("INV-9"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"code":500,"message":"failed to persist changes"}`, rec.Body.String())
}

func TestGetItem(t *testing.T) {
	it := storedItem("INV-1", "Acme")
	env := newTestEnv(it)

	rec := do(t, env.handler, http.MethodGet, "/items/"+it.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got itemJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, it.ID, got.ID)

	rec = do(t, env.handler, http.MethodGet, "/items/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, env.handler, http.MethodGet, "/items/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	begins, _, _, _ := env.tx.counts()
	require.Zero(t, begins)
}

func TestUpdateItem(t *testing.T) {
	it := storedItem("INV-1", "Acme")
	env := newTestEnv(it)

	body := itemBody("INV-1b")
	rec := do(t, env.handler, http.MethodPut, "/items/"+it.ID.String(), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "INV-1b", env.repo.items[it.ID].Number)
	require.Equal(t, "Jane Doe", env.repo.items[it.ID].CustomerName)

	rec = do(t, env.handler, http.MethodPut, "/items/"+uuid.NewString(), body)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateItem_OverdueRefused(t *testing.T) {
	old := domain.NewItem("INV-OLD", today().AddDate(0, 0, -45), "Acme", uuid.New())
	env := newTestEnv(*old)

	rec := do(t, env.handler, http.MethodPut, "/items/"+old.ID.String(), itemBody("INV-OLD"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Acme", env.repo.items[old.ID].CustomerName)
}

func TestDeleteItem(t *testing.T) {
	it := storedItem("INV-1", "Acme")
	env := newTestEnv(it)

	rec := do(t, env.handler, http.MethodDelete, "/items/"+it.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, env.repo.items)

	rec = do(t, env.handler, http.MethodDelete, "/items/"+it.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListItems(t *testing.T) {
	env := newTestEnv(
		storedItem("INV-1", "Acme"),
		storedItem("INV-2", "Acme"),
		storedItem("INV-3", "Acme"),
		storedItem("INV-4", "Globex"),
	)

	rec := do(t, env.handler, http.MethodGet, "/items?filter[customerName]=Acme&offset=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Data        []itemJSON `json:"data"`
		Total       int        `json:"total"`
		PerPage     int        `json:"perPage"`
		CurrentPage int        `json:"currentPage"`
		LastPage    int        `json:"lastPage"`
		From        int        `json:"from"`
		To          int        `json:"to"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 3, page.Total)
	require.Equal(t, 1, page.PerPage)
	require.Equal(t, 2, page.CurrentPage)
	require.Equal(t, 2, page.LastPage)
	require.Equal(t, 3, page.From)
	require.Equal(t, 3, page.To)
	require.Equal(t, "INV-3", page.Data[0].Number)
	require.Equal(t, "CONFIRMED", page.Data[0].Status)
	require.Len(t, page.Data[0].Details, 1)
}

func TestListItems_BadWindow(t *testing.T) {
	env := newTestEnv()
	for _, q := range []string{"limit=abc", "limit=-1", "offset=-1&limit=5"} {
		rec := do(t, env.handler, http.MethodGet, "/items?"+q, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListItems_ZeroLimitReturnsEverything(t *testing.T) {
	env := newTestEnv(storedItem("INV-1", "Acme"), storedItem("INV-2", "Acme"))
	rec := do(t, env.handler, http.MethodGet, "/items?limit=0", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Data        []itemJSON `json:"data"`
		CurrentPage int        `json:"currentPage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.Equal(t, 1, page.CurrentPage)
}

func TestListItems_EmptyDataIsArray(t *testing.T) {
	env := newTestEnv()
	rec := do(t, env.handler, http.MethodGet, "/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[],"total":0,"perPage":0,"currentPage":1,"lastPage":1,"from":0,"to":0}`, rec.Body.String())
}
