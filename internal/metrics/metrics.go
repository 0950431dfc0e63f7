package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Action outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
)

var actions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crm",
		Name:      "actions_total",
		Help:      "Form actions handled, by action and outcome",
	},
	[]string{"action", "outcome"}, // success, rejected, denied, error
)

var logins = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crm",
		Name:      "logins_total",
		Help:      "Login attempts by result",
	},
	[]string{"result"}, // success, failure
)

func RecordAction(action, outcome string) {
	actions.WithLabelValues(action, outcome).Inc()
}

func RecordLogin(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	logins.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
