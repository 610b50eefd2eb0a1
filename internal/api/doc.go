// Package api adapts HTTP requests to the application services: it decodes
// and validates request bodies, resolves the authenticated user, and maps
// service errors to status codes and client-safe messages.
package api
