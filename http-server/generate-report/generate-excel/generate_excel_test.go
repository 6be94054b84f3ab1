package generate_excel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"robot-maint/internal/storage"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GeneratePurchaseOrder(ctx context.Context, id int64) ([]byte, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func serve(g GenerateExcelHandler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/purchase-orders/{id}/excel", PurchaseOrderExcel(slog.Default(), g))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestPurchaseOrderExcel(t *testing.T) {
	m := new(MockGenerator)
	m.On("GeneratePurchaseOrder", mock.Anything, int64(9)).Return([]byte("PK-xlsx"), nil)

	rr := serve(m, "/purchase-orders/9/excel")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment; filename=purchase_order_9_"))
	assert.Equal(t, "PK-xlsx", rr.Body.String())
}

func TestPurchaseOrderExcel_NotFound(t *testing.T) {
	m := new(MockGenerator)
	m.On("GeneratePurchaseOrder", mock.Anything, int64(9)).Return(nil, fmt.Errorf("x: %w", storage.ErrNotFound))

	rr := serve(m, "/purchase-orders/9/excel")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
