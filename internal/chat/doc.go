// Package chat implements the client-side conversation controller for the
// WellnessGPT assistant.
//
// # Overview
//
// The package owns the conversation loop: it takes a user's typed input or a
// click on a rendered widget, sends it to the remote conversation service
// through a [Transport], and renders the structured reply through a [View].
// Replies are plain text, typed cards, or quick-reply suggestions.
//
// # Components
//
//   - [Selection]: at most one selected id per category
//   - [MessageRenderer]: text bubbles with agent badge and timestamp
//   - [CardEngine]: decodes typed cards and builds their element trees
//   - [SuggestionBar]: transient quick replies tied to the producing agent
//   - [Controller]: the turn-taking state machine
//
// # Turns
//
// The controller holds a single turn lock. Every path that changes the view
// or the application state (submissions, clicks, the greeting) acquires it
// with a compare-and-swap. A submission that arrives while a turn is in
// flight is dropped, never queued. The lock is released on every exit path,
// including transport failures, timeouts and cancellation.
//
// # Views
//
// Views receive element trees built from a small set of primitives
// ([View.Append], [View.Remove], [View.SetClass], [View.SetInput],
// [View.ScrollToEnd]). Interactive elements carry an [Action] value and an
// element id; a view reports activation by calling [Controller.Click] with
// that id. Views never hold callbacks into the controller.
package chat
