// Package control exposes a sync session over a local HTTP API and provides
// the matching client.
//
// # Endpoints
//
//   - GET  /api/status: current status
//   - GET  /api/status/stream: websocket pushing every status change
//   - GET  /api/capabilities: which backends are usable, and the debounce delay
//   - GET  /api/files: files in the sync directory
//   - POST /api/setup: acquire a directory; body {"forceManual","directory"}
//   - POST /api/sync: run a pass now
//   - POST /api/pause, /api/resume, /api/disable, /api/reset
//   - GET  /metrics: Prometheus metrics
//
// Errors are returned as {"error": "..."} with 409 when sync is not set up,
// 502 when the directory is unusable and 500 otherwise. A canceled or failed
// setup is not an HTTP error: the response carries ok=false and the status
// explains what happened.
//
// # Client
//
//	client, err := control.NewClient("127.0.0.1:7488")
//	if err != nil {
//		return err
//	}
//	status, err := client.FetchStatus(ctx)
//
// The server binds to loopback by default and has no authentication; it is
// meant for a single local operator.
package control
