package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sennetconsortium/senotype-editor/pkg/application"
)

// ScrapeController exposes a gatherer in the Prometheus text format.
type ScrapeController struct {
	path    string
	handler http.Handler
}

// NewPrometheusController serves gatherer at path. A nil gatherer serves the
// process-wide default registry, which also carries the Go runtime metrics.
func NewPrometheusController(path string, gatherer prometheus.Gatherer) application.Controller {
	if path == "" {
		path = "/debug/prometheus"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &ScrapeController{
		path: path,
		handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
			Timeout:       10 * time.Second,
		}),
	}
}

func (c *ScrapeController) Key() string {
	return "metrics:" + c.path
}

func (c *ScrapeController) Register(r *mux.Router) {
	r.Handle(c.path, c.handler).Methods(http.MethodGet, http.MethodHead)
}
