package httpapi

import (
	"io"
	"log/slog"
	"sync"

	"github.com/chuliyu/kvwal/internal/metrics"
)

var (
	testCollectorOnce sync.Once
	testCollector     *metrics.Collector
)

// newTestCollector returns a process-wide shared collector: metrics.Collector
// registers against the default Prometheus registry, which panics on a
// second registration, so tests in this package share one instance.
func newTestCollector() *metrics.Collector {
	testCollectorOnce.Do(func() {
		testCollector = metrics.NewCollector()
	})
	return testCollector
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
