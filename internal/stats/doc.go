// Package stats collects one consistent utilization snapshot from a shell
// capable session in a single round trip.
//
// A collection composes one shell script out of a fixed base probe plus any
// number of user-defined metric commands, runs it once, and parses the
// marker-delimited output:
//
//	TABBY-STATS-START <cpu> <netRx> <netTx> <mem> <disk>
//	[ TABBY-STATS-CUSTOM-START <v1>[ TABBY-STATS-NEXT <v2> ...]]
//	TABBY-STATS-END
//
// # Key Components
//
//	BuildCommand  - Renders the one-line, single-quoted /bin/sh invocation
//	Accumulator   - Buffers streamed chunks until the end marker shows up
//	Executor      - Runs the command over an SSH channel or a local process
//	Parse         - Turns captured text into a Snapshot
//	Collector     - Single-flight guard + timeout race around all of the above
//
// # Failure Model
//
// Every failure (unsupported session, channel error, timeout, unparseable
// output, a collection already in flight) has the same remedy: skip this
// cycle and poll again. Collector.Collect therefore returns nil for all of
// them and only logs the kind. Collector.TryCollect keeps the distinction for
// callers and tests that want it.
//
// # Concurrency
//
// A Collector owns its busy flag and nothing else; independent sessions get
// independent collectors and share no mutable state. Overlapping calls on one
// collector are rejected, never queued.
package stats
