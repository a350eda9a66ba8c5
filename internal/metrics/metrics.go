// Package metrics exposes the Prometheus collectors of the auth service.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
)

const namespace = "bizbridge_auth"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// AuthEvents counts login, registration and reset transitions by outcome.
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication events by outcome",
		},
		[]string{"event", "outcome"},
	)

	MailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_sends_total",
			Help:      "Outgoing emails by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)
)

// RecordAuth increments AuthEvents with "ok" or "error".
func RecordAuth(event string, err error) {
	AuthEvents.WithLabelValues(event, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and latency keyed by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

type instrumentedSender struct {
	next      mailer.Sender
	transport string
}

// InstrumentMailer counts every Send on next under the given transport label.
func InstrumentMailer(next mailer.Sender, transport string) mailer.Sender {
	return &instrumentedSender{next: next, transport: transport}
}

func (s *instrumentedSender) Send(ctx context.Context, msg mailer.Message) error {
	err := s.next.Send(ctx, msg)
	MailSends.WithLabelValues(s.transport, outcome(err)).Inc()
	return err
}
