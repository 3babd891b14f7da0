// Package websocket streams solver events to subscribed clients.
//
// A central Hub owns all connections. Clients subscribe to one channel with
// the ?channel= query parameter when connecting: a puzzle ID receives the
// events of runs against that puzzle, and "all" receives every event.
//
// Every frame is one JSON Message:
//
//	{"channel": "reference", "event": "run_completed", "data": {...}, "timestamp": "..."}
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("channel"))
//	})
//
// BroadcastEvent never blocks the caller, so the solve path is not slowed
// by slow consumers; a client whose send buffer fills is disconnected.
package websocket
