package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	Init(reg)

	ObserveReportCreate(Result(nil), 10*time.Millisecond)
	ObserveReportCreate(Result(errors.New("boom")), time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(reportCreateTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reportCreateTotal.WithLabelValues(ResultError)))

	IncVersionState("active", ResultSuccess)
	IncVersionState("", ResultError)
	assert.Equal(t, 1.0, testutil.ToFloat64(versionStateTotal.WithLabelValues("active", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(versionStateTotal.WithLabelValues("unknown", ResultError)))

	ObserveCosting("", time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(costingTotal.WithLabelValues(ResultSuccess)))

	ObservePurchaseOrderGenerate(ResultError, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(purchaseOrderGenerateTotal.WithLabelValues(ResultError)))

	AddStaleReferences("oil", 3)
	AddStaleReferences("oil", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(staleReferences.WithLabelValues("oil")))

	n, err := testutil.GatherAndCount(reg, metricPrefix+"report_create_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
