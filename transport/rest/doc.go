// Package rest exposes the broker's management surface over plain HTTP:
// topic creation, deletion and listing, plus health and statistics
// endpoints. All responses are JSON; broker sentinel errors map to HTTP
// status codes with a structured error body.
package rest
