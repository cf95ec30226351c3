// Package auth supplies the bearer token the separation client sends.
//
// Tokens come from STEMDECK_TOKEN (via config) or the JSON token file written
// by `stemdeck login`. A missing or expired token yields ErrAuthRequired,
// which callers treat as a precondition failure: the user must sign in again
// and no request is made.
package auth
