// Package metrics exposes Prometheus counters for redemptions and sign-ins.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the wallet and auth services report to
type Recorder interface {
	RecordRedemption(codeType, outcome string)
	RecordAuth(event, provider string)
}

// Redemption outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// Collector is the Prometheus-backed Recorder
type Collector struct {
	redemptions *prometheus.CounterVec
	redeemed    *prometheus.CounterVec
	authEvents  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "money42_redemptions_total",
			Help: "Code redemption attempts by code type and outcome.",
		}, []string{"type", "outcome"}),
		redeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "money42_redeemed_codes_total",
			Help: "Codes consumed, by code type.",
		}, []string{"type"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "money42_auth_events_total",
			Help: "Auth events by event name and provider.",
		}, []string{"event", "provider"}),
	}
	reg.MustRegister(c.redemptions, c.redeemed, c.authEvents)
	return c
}

// RecordRedemption counts one redemption attempt. codeType is empty when the
// code could not be resolved.
func (c *Collector) RecordRedemption(codeType, outcome string) {
	if codeType == "" {
		codeType = "unknown"
	}
	c.redemptions.WithLabelValues(codeType, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.redeemed.WithLabelValues(codeType).Inc()
	}
}

// RecordAuth counts a sign-up, sign-in or sign-out
func (c *Collector) RecordAuth(event, provider string) {
	c.authEvents.WithLabelValues(event, provider).Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordRedemption(string, string) {}
func (Nop) RecordAuth(string, string)       {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
