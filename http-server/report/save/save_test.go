package save

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"robot-maint/internal/storage"
)

type MockReportCreator struct {
	mock.Mock
}

func (m *MockReportCreator) CreateReport(ctx context.Context, interventionID, systemID int64, overrides map[int64]int64) (*storage.Report, error) {
	args := m.Called(ctx, interventionID, systemID, overrides)
	if v := args.Get(0); v != nil {
		return v.(*storage.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateReport_Created(t *testing.T) {
	m := new(MockReportCreator)
	m.On("CreateReport", mock.Anything, int64(3), int64(1), map[int64]int64{7: 12}).
		Return(&storage.Report{ID: 100, InterventionID: 3, SystemID: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		strings.NewReader(`{"intervention_id":3,"system_id":1,"versions":{"7":12}}`))
	rr := httptest.NewRecorder()
	CreateReport(slog.Default(), m).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":100`)
	m.AssertExpectations(t)
}

func TestCreateReport_MissingIDs(t *testing.T) {
	m := new(MockReportCreator)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{"system_id":1}`))
	rr := httptest.NewRecorder()
	CreateReport(slog.Default(), m).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	m.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReport_ErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("model 7: %w", storage.ErrNoActiveVersion), http.StatusNotFound},
		{fmt.Errorf("report: %w", storage.ErrAlreadyExists), http.StatusConflict},
		{fmt.Errorf("system 1 not in intervention: %w", storage.ErrInvalidState), http.StatusConflict},
	}

	for _, tc := range cases {
		m := new(MockReportCreator)
		m.On("CreateReport", mock.Anything, int64(3), int64(1), map[int64]int64(nil)).Return(nil, tc.err)

		req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{"intervention_id":3,"system_id":1}`))
		rr := httptest.NewRecorder()
		CreateReport(slog.Default(), m).ServeHTTP(rr, req)

		assert.Equal(t, tc.want, rr.Code, tc.err.Error())
	}
}
