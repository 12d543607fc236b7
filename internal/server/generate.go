// Package server implements the remote case store that sync clients talk
// to.
//
// It serves a user's cases at GET /casesForUser/{userId} and accepts
// uploads at POST /case, applying last-writer-wins against the stored
// version. Accepted uploads are published as events and streamed to
// WebSocket and SSE clients.
//
// Usage:
//
//	srv, err := server.New(st, server.DefaultConfig(), &logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

//go:generate gomarkdoc --output README.md .
