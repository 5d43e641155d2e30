package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func TestRun_WorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("index", Ping(true, up))
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)

	c.Register("cache", Ping(false, fail))
	r := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "connection refused", r.Components["cache"].Message)

	c.Register("index", Ping(true, fail))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("cache", Ping(false, fail))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var r Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, StatusDegraded, r.Status)

	c.Register("index", Ping(true, fail))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
