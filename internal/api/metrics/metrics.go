// Package metrics defines the custom Prometheus metrics for the user auth
// service. HTTP request metrics come from the echoprometheus middleware; the
// collectors here cover authentication outcomes. Audit pipeline metrics live
// with the dispatcher in the queue package.
//
// All collectors register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userauth"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthOperationsTotal counts signup and login outcomes.
// Labels:
//   - operation: "signup" or "login"
//   - result: "ok", "conflict", "unauthorized", "invalid" or "error"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of signup and login attempts, by outcome.",
	},
	[]string{"operation", "result"},
)

// TokenValidationsTotal counts token checks.
// Label:
//   - result: "valid", "invalid" or "error"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validations, by result.",
	},
	[]string{"result"},
)
