package save

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"robot-maint/internal/storage"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error) {
	args := m.Called(ctx, interventionID)
	if v := args.Get(0); v != nil {
		return v.(*storage.PurchaseOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func serve(g PurchaseOrderGenerator, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/interventions/{intervention_id}/purchase-order", GeneratePurchaseOrder(slog.Default(), g))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
	return rr
}

func TestGeneratePurchaseOrder(t *testing.T) {
	m := new(MockGenerator)
	m.On("Generate", mock.Anything, int64(5)).Return(&storage.PurchaseOrder{ID: 9, InterventionID: 5}, nil).Once()
	m.On("Generate", mock.Anything, int64(5)).Return(nil, fmt.Errorf("purchase order 9: %w", storage.ErrAlreadyExists)).Once()

	rr := serve(m, "/interventions/5/purchase-order")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(m, "/interventions/5/purchase-order")
	assert.Equal(t, http.StatusConflict, rr.Code)

	m.AssertExpectations(t)
}

func TestGeneratePurchaseOrder_NoSystems(t *testing.T) {
	m := new(MockGenerator)
	m.On("Generate", mock.Anything, int64(6)).Return(nil, fmt.Errorf("intervention 6: %w", storage.ErrNoSystems))

	rr := serve(m, "/interventions/6/purchase-order")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
