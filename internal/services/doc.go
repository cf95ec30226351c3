// Package services defines shared utilities consumed by the job controller,
// the backend clients and the player.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, controller states, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (input, auth, transient, job, decode, rate limited).
//   - UserMessage, which turns any error into the single message the player
//     shows next to its Retry affordance.
package services
