// Package inspect serves a live store over HTTP.
//
// Server exposes the cells, the dependency edges and a Mermaid rendering of
// the graph as JSON and text routes, and accepts writes and undos. Hub fans
// store events out to WebSocket watchers on /watch:
//
//	hub := inspect.NewHub(logger)
//	store := reactive.NewStore(reactive.WithObserver(hub.Observer()))
//	srv := inspect.New(store, inspect.WithHub(hub))
//	http.ListenAndServe("localhost:7070", srv.Handler())
//
// Watchers that fall behind are disconnected rather than blocking writes.
package inspect
