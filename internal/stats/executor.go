package stats

import (
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"runtime"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/pkg/sshutil"
)

// SessionKind is what a session can do, decided once when it is created.
type SessionKind int

const (
	SessionUnsupported SessionKind = iota
	SessionChannel
	SessionLocal
)

func (k SessionKind) String() string {
	switch k {
	case SessionChannel:
		return "ssh"
	case SessionLocal:
		return "local"
	default:
		return "unsupported"
	}
}

// Session is the handle a collection runs against. Build one with
// ChannelSession or LocalSession; the zero value is unsupported.
type Session struct {
	kind   SessionKind
	opener sshutil.ChannelOpener
	goos   string
}

// ChannelSession runs collections over exec channels opened on opener.
func ChannelSession(opener sshutil.ChannelOpener) Session {
	if opener == nil {
		return Session{}
	}
	return Session{kind: SessionChannel, opener: opener}
}

// LocalSession runs collections as a local /bin/sh process.
func LocalSession() Session {
	return localSessionFor(runtime.GOOS)
}

func localSessionFor(goos string) Session {
	return Session{kind: SessionLocal, goos: goos}
}

// Kind reports which executor the session selects.
func (s Session) Kind() SessionKind {
	return s.kind
}

// Executor runs a composed command and returns its raw stdout.
// Executors never retry.
type Executor interface {
	Run(ctx context.Context, command string) (string, error)
}

// NewExecutor picks the executor for s. Local sessions are only accepted on
// the two platforms the base probe speaks (linux and darwin); anything else
// fails here, before any execution is attempted.
func NewExecutor(s Session, timeout time.Duration) (Executor, error) {
	switch s.kind {
	case SessionChannel:
		return &channelExecutor{opener: s.opener}, nil
	case SessionLocal:
		if s.goos != "linux" && s.goos != "darwin" {
			return nil, unsupportedPlatformError(s.goos)
		}
		return &localExecutor{shell: Shell, timeout: timeout}, nil
	default:
		return nil, unsupportedSessionError()
	}
}

// channelExecutor streams output from a fresh exec channel and stops reading
// as soon as the END marker has arrived.
type channelExecutor struct {
	opener sshutil.ChannelOpener
}

type execResult struct {
	output string
	err    error
}

// Run returns when the marker is seen, the stream fails, or ctx is done,
// whichever comes first. The channel is closed on every path, including
// when ctx expires while the channel is still being opened.
func (e *channelExecutor) Run(ctx context.Context, command string) (string, error) {
	results := make(chan execResult, 1)
	go func() {
		results <- e.stream(ctx, command)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-results:
		return r.output, r.err
	}
}

func (e *channelExecutor) stream(ctx context.Context, command string) execResult {
	ch, err := e.opener.OpenChannel()
	if err != nil {
		return execResult{err: channelError(err, "Couldn't open an exec channel")}
	}
	defer ch.Close()

	// Closing the channel is what unblocks a pending Read.
	stop := context.AfterFunc(ctx, func() { _ = ch.Close() })
	defer stop()

	out, err := ch.Exec(command)
	if err != nil {
		return execResult{err: channelError(err, "Exec request failed")}
	}

	acc := NewAccumulator(EndMarker)
	buf := make([]byte, 4096)
	for {
		n, err := out.Read(buf)
		if n > 0 && acc.Feed(buf[:n]) {
			return execResult{output: acc.Text()}
		}
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return execResult{err: channelError(err, "Output ended before the end marker")}
		}
	}
}

// localExecutor runs the command through a local shell and captures stdout
// in one piece. It enforces its own timeout independent of the caller's.
type localExecutor struct {
	shell   string
	timeout time.Duration
}

func (e *localExecutor) Run(ctx context.Context, command string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	// The probe's `sleep 1` can outlive a killed shell and hold stdout open.
	cmd.WaitDelay = 250 * time.Millisecond

	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return "", errors.WrapWithCode(ctxErr, errors.ErrTimeout,
				"Local probe didn't finish in time", "")
		}
		return "", ctxErr
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec,
			"Local probe failed",
			"Check that "+e.shell+" exists and is executable.")
	}
	return string(out), nil
}
