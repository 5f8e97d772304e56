// Package api implements the HTTP delivery layer: request/response DTOs,
// handlers for task operations and synchronization actions, and the mapping
// from domain errors to HTTP status codes.
package api
