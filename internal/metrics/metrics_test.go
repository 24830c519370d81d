package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordHTTPRequest(http.MethodGet, "/api/v1/time_buckets", 200, 15*time.Millisecond)
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/time_buckets", 200, 5*time.Millisecond)
	m.RecordValidationFailure("time_bucket")
	m.RecordBucketsCreated(SourceTemplate, 8)
	m.RecordBucketsCreated(SourceManual, 0)
	m.RecordItemCompleted()
	m.RecordRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/time_buckets", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("time_bucket")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.bucketsCreated.WithLabelValues(SourceTemplate)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.bucketsCreated), "zero additions must not create a series")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest(http.MethodPost, "/x", 500, time.Second)
		m.RecordValidationFailure("bucket_item")
		m.RecordBucketsCreated(SourceManual, 1)
		m.RecordItemCompleted()
		m.RecordRateLimited()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).RecordRateLimited()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timebucket_rate_limited_total 1")
}
