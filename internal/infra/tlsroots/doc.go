// Package tlsroots provides TLS material for guildsync's two network edges:
//
//   - roots.go: trusted roots for the websocket gateway (system pool plus
//     an optional private CA)
//   - watcher.go: the status server's key pair, reloaded via fsnotify when
//     the files are replaced
package tlsroots
