// Package api implements the HTTP REST API for singlestat-server.
//
// New(store, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health       state counts across live sources
//	GET /api/v1/values       every live source ([]ValueResponse)
//	GET /api/v1/values/{id}  one source; 404 if unknown or stale
//	GET /api/v1/alerts       firing and recently resolved alerts
//	GET /api/v1/snapshot     all live sources plus generated_at
//
// Every endpoint answers JSON and returns 405 for methods other than GET.
package api
