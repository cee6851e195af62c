package keeper

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Counters are registered in the default set; a host that scrapes can call
// metrics.WritePrometheus itself, a host that doesn't pays one atomic add
// per event.
var sessionsExpiredTotal = metrics.NewCounter("testkeeper_sessions_expired_total")

func requestsTotal(op string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`testkeeper_requests_total{op=%q}`, op))
}

func watchesFiredTotal(kind string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`testkeeper_watches_fired_total{kind=%q}`, kind))
}
