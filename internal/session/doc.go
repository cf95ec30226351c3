// Package session owns the single active player: the selected file and its
// object URL, the decoded stems, the output graph, its transport and the
// device router.
//
// Exactly one graph is live at a time. Loading new stems or opening a new
// file disposes the previous graph and releases every URL handle before the
// replacement is built. Across processes, a file lock under the state
// directory keeps a second player from opening.
package session
