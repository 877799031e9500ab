// Package auth enforces API key authentication on the server.
//
// APIKeyInterceptor guards the gRPC receiver; Middleware guards the REST
// API. Both pass every request through when the mode is not "apikey" or no
// key is configured, which keeps local development unauthenticated.
package auth
