// Package shutdown provides graceful shutdown for guildsync-server.
//
// A Handler collects cleanup hooks and runs them in reverse registration
// order, bounded by a timeout, once SIGINT or SIGTERM arrives or the
// context passed to WaitContext ends.
package shutdown
