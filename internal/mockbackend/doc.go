// Package mockbackend is a development stand-in for the separation service.
//
// It speaks the same wire contract as the real backend (POST /separate,
// GET /separate/{id}, GET /status/{id}, GET /upload/constraints) and serves
// result stems under /assets/{id}/. "Separation" is a mid/side split of the
// input, with a crossover for the four-stem set, which is enough to exercise
// playback end to end. Progress advances one step per poll so tests are
// deterministic; jobs expire after a TTL and inputs whose name contains
// "fail" are reported as failed.
package mockbackend
