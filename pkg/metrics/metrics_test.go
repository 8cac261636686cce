package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	m := NewTestMetrics("test")

	router := mux.NewRouter()
	router.Use(Middleware(m))
	router.HandleFunc("/posts/{postId}/comments", func(w http.ResponseWriter, r *http.Request) {}).
		Methods(http.MethodGet)

	// Distinct post IDs must collapse into one label value
	for _, path := range []string{"/posts/p1/comments", "/posts/p2/comments", "/posts/p3/comments"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestCounter))
	assert.Equal(t, float64(3),
		testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET /posts/{postId}/comments", "200")))
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := NewTestMetrics("test")

	router := mux.NewRouter()
	router.Use(Middleware(m))
	router.HandleFunc("/posts/{postId}/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/posts/ghost/comments", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET /posts/{postId}/comments", "404")))
}
