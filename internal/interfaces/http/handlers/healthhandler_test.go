package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tasklane/tasklane/internal/interfaces/http/handlers/testutil"
)

func TestHealthHandler(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]DependencyCheck
		wantCode int
		contains []string
	}{
		{"no dependencies", nil, http.StatusOK, []string{`"status":"healthy"`, `"version":"dev"`}},
		{"all up", map[string]DependencyCheck{"database": healthy, "redis": healthy}, http.StatusOK, []string{`"database":"ok"`, `"redis":"ok"`}},
		{"one down", map[string]DependencyCheck{"database": healthy, "redis": down}, http.StatusServiceUnavailable, []string{`"status":"unhealthy"`, `"redis":"connection refused"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)
			NewHealthHandler(tt.checks).HealthCheck(c)

			assert.Equal(t, tt.wantCode, w.Code)
			for _, s := range tt.contains {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}
