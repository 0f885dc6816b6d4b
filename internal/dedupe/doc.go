// Package dedupe guards web submissions against replays: each form post and
// card click carries an idempotency key, and a key is honored once within a
// configurable window.
package dedupe
