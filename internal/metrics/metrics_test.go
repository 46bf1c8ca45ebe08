package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEditorCounters(t *testing.T) {
	before := testutil.ToFloat64(editorMutationsTotal.WithLabelValues("move"))
	ObserveMutation("move")
	if got := testutil.ToFloat64(editorMutationsTotal.WithLabelValues("move")); got != before+1 {
		t.Fatalf("mutations = %v, want %v", got, before+1)
	}

	failures := testutil.ToFloat64(snapshotPersistFailuresTotal)
	ObservePersistFailure()
	if got := testutil.ToFloat64(snapshotPersistFailuresTotal); got != failures+1 {
		t.Fatalf("persist failures = %v", got)
	}

	recoveries := testutil.ToFloat64(snapshotRecoveriesTotal)
	ObserveRecovery()
	if got := testutil.ToFloat64(snapshotRecoveriesTotal); got != recoveries+1 {
		t.Fatalf("recoveries = %v", got)
	}
}

func TestAsynqMiddlewareCountsFailures(t *testing.T) {
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return errors.New("boom")
	}))

	before := testutil.ToFloat64(taskFailedTotal.WithLabelValues("test:fail"))
	if err := handler.ProcessTask(context.Background(), asynq.NewTask("test:fail", nil)); err == nil {
		t.Fatalf("expected error to pass through")
	}
	if got := testutil.ToFloat64(taskFailedTotal.WithLabelValues("test:fail")); got != before+1 {
		t.Fatalf("failed = %v", got)
	}
}

func TestGinMiddlewareSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/v1/templates", func(c *gin.Context) { c.Status(http.StatusOK) })

	labels := func(path string) float64 {
		return testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, path, "200"))
	}
	health, templates := labels("/health"), labels("/v1/templates")

	for _, path := range []string{"/health", "/v1/templates"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := labels("/health"); got != health {
		t.Fatalf("health requests must not be counted, got %v", got)
	}
	if got := labels("/v1/templates"); got != templates+1 {
		t.Fatalf("templates requests = %v", got)
	}
}
