// Package server publishes decoded frames to browsers and other tools over
// WebSocket.
//
// A Server owns one Hub. The sniffing loop calls Hub.PublishFrame for every
// frame and Hub.Reset when the capture is cleared; every connected client
// receives the resulting Event as a JSON text message.
//
// # Endpoints
//
//   - /ws      WebSocket stream of Event values
//   - /frames  JSON array of the frames published since the last reset
//   - /status  version, session id, client and frame counts
//
// # Event Format
//
//	{"type":"frame","seq":12,"entry":{"bits":"...","hex":"4A 2F","text":"J/"},
//	 "spans":{"hex":[{"start":0,"end":2,"color":"#FF5555"}]},"boundary":96}
//
// A "reset" event carries only its type and sequence number.
//
// Every endpoint allows GET from any origin and is rate limited per client
// IP. The session id is random per Server, so clients can tell a restarted
// feed from a reconnect.
//
// # Usage Example
//
//	srv := server.New(&server.Config{Host: "", Port: 8765})
//	go func() { _ = srv.Start(ctx) }()
//	srv.Hub().PublishFrame(entry, spans, boundary)
//
// Start returns when ctx is cancelled, after a graceful Shutdown.
package server
