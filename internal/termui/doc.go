// Package termui renders the conversation in a terminal.
//
// # Overview
//
// View implements chat.View on top of an io.Writer (normally the readline
// instance's stdout). Bubbles print as a colored header line (sender or
// agent badge plus time) followed by the text. Cards print as lipgloss boxes.
//
// # Widgets
//
// Every clickable card, prescription action and suggestion gets a number
// printed as [n]. Typing #n at the prompt resolves, through View.Resolve, to
// the element id that the caller hands to Controller.Click. A bare number
// is not a reference; it is text like any other answer. Removing an
// element (a suggestion bar, say) retires its numbers; the printed text stays
// on screen since a terminal cannot unprint.
//
// # Highlights
//
// Selection changes print a one-line notice ("✓ Selected: City Hospital")
// instead of restyling the already printed box.
package termui
