// Package metrics declares the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProxyRequests counts proxy requests by outcome: html, json, raw, error or
	// limited.
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awn",
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "The total number of proxied requests by outcome",
	}, []string{"outcome"})

	// BackendRequests counts backend calls by method and status class.
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awn",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "The total number of backend API calls",
	}, []string{"method", "status"})

	// TokenRefreshes counts refresh attempts by result.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awn",
		Subsystem: "backend",
		Name:      "token_refreshes_total",
		Help:      "The total number of access token refresh attempts",
	}, []string{"result"})

	// CacheLookups counts query cache lookups by result: hit or miss.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awn",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "The total number of query cache lookups",
	}, []string{"result"})
)

// StatusClass maps a status code to 2xx, 3xx, 4xx, 5xx or "error".
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	}
	return "error"
}
