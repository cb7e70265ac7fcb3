// Package monitor wires stats collectors to real hosts and keeps them polling.
//
// # Key Components
//
//	Pool      - Keeps one SSH connection per host alive between polls
//	Poller    - Ticks each host's collector on its own schedule
//	Hub       - Optional websocket fan-out of every snapshot
//	Renderer  - One-line terminal rendering of a snapshot
//
// # Connection Pool
//
// Each configured host may list several SSH connection strings; the pool
// tries them in order and remembers which one answered. A pooled connection
// is checked with a keepalive before reuse. When opening an exec channel on
// it fails, the connection is dropped so the next poll redials.
//
// # Polling
//
// The Poller fires one collection per host immediately and then every
// interval. Collections run in their own goroutines, so a slow host never
// delays another; if a host's previous collection is still in flight when the
// next tick lands, its collector turns the new one away and the tick is
// reported as "no data". Results are handed to a single callback, one at a
// time.
package monitor
