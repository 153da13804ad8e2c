package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()

	require.NotNil(t, c)
	assert.NotNil(t, c.jobsSubmitted)
	assert.NotNil(t, c.jobsCompleted)
	assert.NotNil(t, c.jobsFailed)
	assert.NotNil(t, c.jobRetries)
	assert.NotNil(t, c.processingDuration)
}

func TestCollectorsAreIndependent(t *testing.T) {
	// Each collector owns a registry, so building two must not panic on
	// duplicate registration.
	assert.NotPanics(t, func() {
		_ = NewCollector()
		_ = NewCollector()
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	c := NewCollector()

	c.RecordSubmitted()
	c.RecordSubmitted()
	c.RecordCompleted(2 * time.Second)
	c.RecordFailed(time.Second)
	c.RecordRetry()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()

	assert.True(t, strings.Contains(body, "ka_jobs_submitted_total 2"), body)
	assert.True(t, strings.Contains(body, "ka_jobs_completed_total 1"), body)
	assert.True(t, strings.Contains(body, "ka_jobs_failed_total 1"), body)
	assert.True(t, strings.Contains(body, "ka_job_retries_total 1"), body)
	assert.Contains(t, body, "ka_job_processing_seconds")
}
