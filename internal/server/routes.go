// Package server wires the HTTP handlers into a ServeMux for the
// StoryRiver application.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all
// application routes: the front-end page, the polling and contribution
// endpoints, the stream upgrade, health check, and metrics.
func SetupRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.IndexHandler)
	mux.HandleFunc("/text", s.TextHandler)
	mux.HandleFunc("/contribute", s.ContributeHandler)
	mux.HandleFunc("/stream", s.StreamHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
