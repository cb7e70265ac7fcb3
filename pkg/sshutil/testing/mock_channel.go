// Package testing provides scriptable stand-ins for SSH exec channels so the
// streaming collector can be exercised without a server.
package testing

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rileyhilliard/srvstats/pkg/sshutil"
)

// MockChannel replays scripted output chunks.
//
// After the chunks run out the stream ends with Err if set, blocks until
// Close if Hang is set, and returns io.EOF otherwise.
type MockChannel struct {
	Chunks  [][]byte
	Err     error
	Hang    bool
	ExecErr error

	mu       sync.Mutex
	cmd      string
	next     int
	pending  []byte
	closed   chan struct{}
	closes   int
	execs    int
	initOnce sync.Once
}

// NewMockChannel returns a channel that emits the given strings as chunks.
func NewMockChannel(chunks ...string) *MockChannel {
	ch := &MockChannel{}
	for _, c := range chunks {
		ch.Chunks = append(ch.Chunks, []byte(c))
	}
	return ch
}

func (m *MockChannel) init() {
	m.initOnce.Do(func() { m.closed = make(chan struct{}) })
}

// Exec records cmd and returns the scripted stream.
func (m *MockChannel) Exec(cmd string) (io.Reader, error) {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs++
	m.cmd = cmd
	if m.ExecErr != nil {
		return nil, m.ExecErr
	}
	return &mockStream{ch: m}, nil
}

// Close releases the channel. Blocked reads return io.ErrClosedPipe.
func (m *MockChannel) Close() error {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	if m.closes == 1 {
		close(m.closed)
	}
	return nil
}

// Command returns the last command passed to Exec.
func (m *MockChannel) Command() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cmd
}

// Closed reports whether Close was called at least once.
func (m *MockChannel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes > 0
}

// ExecCount returns how many times Exec was called.
func (m *MockChannel) ExecCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.execs
}

type mockStream struct {
	ch *MockChannel
}

func (s *mockStream) Read(p []byte) (int, error) {
	m := s.ch
	m.mu.Lock()

	select {
	case <-m.closed:
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	default:
	}

	if len(m.pending) == 0 && m.next < len(m.Chunks) {
		m.pending = m.Chunks[m.next]
		m.next++
	}
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}

	hang, err := m.Hang, m.Err
	m.mu.Unlock()

	if hang {
		<-m.closed
		return 0, io.ErrClosedPipe
	}
	if err != nil {
		return 0, err
	}
	return 0, io.EOF
}

// MockOpener hands out Channel on every OpenChannel call.
type MockOpener struct {
	Channel *MockChannel
	OpenErr error

	// Gate, when non-nil, blocks OpenChannel until it is closed.
	Gate chan struct{}
	// Entered receives a value each time OpenChannel is entered, if non-nil.
	Entered chan struct{}

	opens atomic.Int32
}

// OpenChannel implements sshutil.ChannelOpener.
func (o *MockOpener) OpenChannel() (sshutil.StreamChannel, error) {
	o.opens.Add(1)
	if o.Entered != nil {
		o.Entered <- struct{}{}
	}
	if o.Gate != nil {
		<-o.Gate
	}
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.Channel, nil
}

// Opens returns how many times OpenChannel was called.
func (o *MockOpener) Opens() int {
	return int(o.opens.Load())
}

var _ sshutil.ChannelOpener = (*MockOpener)(nil)
var _ sshutil.StreamChannel = (*MockChannel)(nil)
var _ sshutil.ChannelOpener = (*sshutil.Client)(nil)
