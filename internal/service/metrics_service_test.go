package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-review-api/internal/models"
)

func TestMetricsServiceCountsSubmissions(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveReviewSubmission(models.SlotReviewer1, models.AnswerNo)
	metrics.ObserveReviewSubmission(models.SlotReviewer1, models.AnswerNo)
	metrics.ObserveReviewSubmission(models.SlotReviewer2, models.AnswerYes)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.reviewSubmissions.WithLabelValues("Avaliador_1", "Não")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reviewSubmissions.WithLabelValues("Avaliador_2", "Sim")))
}

func TestMetricsServiceHandlerServesRegistry(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, 10*time.Millisecond)
	metrics.ObserveImport(3)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), "feedback_imported_rows_total 3")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveDBQuery("q", time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.ObserveInvitation("sent")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
