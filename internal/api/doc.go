// Package api hosts the operator HTTP server. Routes:
//   - GET /healthz and /readyz for Kubernetes probes; readyz pings the database.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/state for the current watermarks and the last cycle summary.
package api
