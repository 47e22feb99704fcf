package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMultiChecker(t *testing.T) {
	healthy := CheckerFunc(func() error { return nil })
	unhealthy := CheckerFunc(func() error { return errors.New("loss is NaN") })
	tests := map[string]struct {
		checkers []Checker
		healthy  bool
	}{
		"empty":           {checkers: nil, healthy: true},
		"all healthy":     {checkers: []Checker{healthy, healthy}, healthy: true},
		"one unhealthy":   {checkers: []Checker{healthy, unhealthy}, healthy: false},
		"added unhealthy": {checkers: []Checker{healthy}, healthy: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mc := NewMultiChecker(tc.checkers...)
			if name == "added unhealthy" {
				mc.Add(unhealthy)
			}
			err := mc.Check()
			if tc.healthy {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "loss is NaN")
			}
		})
	}
}

func TestHttpHandler(t *testing.T) {
	var checkErr error
	mux := http.NewServeMux()
	SetupHttpMux(mux, CheckerFunc(func() error { return checkErr }))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	checkErr = errors.New("diverged")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "diverged", rec.Body.String())
}
