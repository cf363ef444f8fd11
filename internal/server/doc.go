// Package server exposes serial number lookups over HTTP and WebSocket.
//
// The server wraps a lookup.Client and offers three endpoints:
//
//	GET /health                     liveness probe, answers "OK"
//	GET /api/v1/lookup?serial=...   one lookup, JSON reply
//	GET /ws                         WebSocket; each text message is a serial
//
// Replies share one JSON shape (see LookupResponse). Successful lookups
// answer 200, rejected input 422 and upstream failures 502. Every request
// carries a UUID in the X-Request-ID header.
//
// With Config.Advertise set, the server registers "_modelfinder._tcp" over
// mDNS so clients can find it with package discovery. RemoteClient is the
// matching client for the JSON API.
//
// Start blocks until SIGINT or SIGTERM and then shuts down gracefully,
// closing open WebSocket connections and waiting for in-flight lookups.
package server
