package sshutil

import "io"

// StreamChannel is a single exec channel on a connected session.
//
// Exec starts the command and returns its stdout as an incremental stream;
// chunks arrive as the remote side writes them, with no alignment to lines or
// characters. Close releases the channel and must be safe to call more than
// once and concurrently with a blocked Read on the stream.
type StreamChannel interface {
	Exec(cmd string) (io.Reader, error)
	Close() error
}

// ChannelOpener is anything that can open exec channels on an already
// connected session. *Client satisfies it; tests use a mock.
type ChannelOpener interface {
	OpenChannel() (StreamChannel, error)
}
