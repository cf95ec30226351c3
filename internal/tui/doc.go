// Package tui renders the interactive stem player.
//
// The model owns no audio state of its own. It drives a session.Session
// (transport, graph volumes, routing) and, when a separation is in flight,
// mirrors job.Controller snapshots into a status panel. Lyrics follow the
// playhead through lyrics.Follower; log lines come from a logging.StreamHub
// because console logging is disabled while the alternate screen is active.
package tui
