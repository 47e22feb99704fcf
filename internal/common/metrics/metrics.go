package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/armadaproject/proxgrad/internal/common/health"
)

const MetricPrefix = "proxgrad_"

// NewServer returns a server exposing the metrics gathered by g on /metrics and,
// if checker is non-nil, its health on /health.
func NewServer(port uint16, g prometheus.Gatherer, checker health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	if checker != nil {
		health.SetupHttpMux(mux, checker)
	}
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
