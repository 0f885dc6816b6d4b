// Package webui serves the conversation to browsers.
//
// # Overview
//
// Each browser gets a session, named by the wellness_session cookie. A
// session owns one chat.Controller, the View it draws on, and a store
// Recorder that writes its transcript. Sessions idle for longer than
// web.session_ttl are closed and their transcripts deleted.
//
// # Rendering
//
// View keeps the page as a list of top-level element trees. Every view
// operation updates that list and publishes a Patch:
//
//	append  HTML fragment for a new element
//	remove  element id to delete
//	class   element id, class and on/off
//	input   enabled flag and placeholder
//	scroll  no payload
//
// GET / renders the full page from the list, so a reload shows the current
// conversation. Open tabs receive patches over GET /api/events as
// server-sent events and apply them in static/app.js. Bot text is rendered
// as markdown with goldmark; everything else is escaped by html/template.
//
// # Actions
//
//	POST /api/input        {"text": "...", "idempotency_key": "..."}
//	POST /api/click/{id}   element id of a card, action or suggestion
//	POST /api/cancel       aborts the turn in flight
//	GET  /api/transcript   recorded messages, ?limit=n for the latest n
//	GET  /api/selection    current selections and turn state
//
// Input and click return 202 and run the turn in the background under the
// session's context; results arrive as patches. Requests carrying an
// idempotency key (body field or Idempotency-Key header) are honored once.
// A request made while a turn is in flight gets 409.
//
// # Listeners
//
// The server listens on web.http_addr, or, with web.tailscale.enabled, joins
// the tailnet through tsnet and serves plain HTTP, HTTPS with tailnet
// certificates, or Funnel.
package webui
