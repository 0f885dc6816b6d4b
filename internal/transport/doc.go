// Package transport is the HTTP client for the remote conversation service.
//
// # Overview
//
// [Client] implements chat.Transport: each turn is one JSON POST to
// {base}/chat and one JSON reply. There is no streaming and no retry. A
// network failure, a non-2xx status and an undecodable body are all returned
// as errors; the controller treats them alike.
//
// # Errors
//
// Non-2xx replies come back as [*StatusError], carrying the status code and
// the service's error text when it sent one (either {"error": "..."} or
// {"detail": "..."}). Use errors.As to inspect it.
//
// # Health
//
// [Client.Health] calls GET {base}/health and expects {"status":"healthy"}.
package transport
