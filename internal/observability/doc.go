// Package observability builds the process logger and the Prometheus
// collectors shared by the HTTP layer, the AI router and the config cache.
package observability
