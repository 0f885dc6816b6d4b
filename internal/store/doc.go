// Package store keeps the transcript ledger of a conversation session using
// SQLite.
//
// # Architecture
//
// Store is the interface; SQLiteStore implements it on modernc.org/sqlite
// (pure Go, no cgo). Recorder adapts a Store to chat.Recorder so every
// rendered bubble of one session is written as it appears.
//
// # Data Models
//
//   - Session: one terminal run or one browser cookie
//   - Message: one rendered bubble, with the original card payloads for
//     card bubbles
//
// Messages are ordered by insertion, not by timestamp, so bubbles rendered in
// the same instant keep their order.
//
// # SQLite Configuration
//
// The default path is ":memory:", which keeps nothing after the process
// exits. The store pins itself to a single connection in that mode because
// every connection to ":memory:" is a separate database. File databases use
// WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Deleting a session cascades to its messages.
//
// # Error Handling
//
//   - ErrNotFound: requested session does not exist
//   - ErrDuplicateSession: session id already taken
package store
