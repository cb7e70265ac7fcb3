package sshutil

import (
	"fmt"
	"io"
	"sync"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"golang.org/x/crypto/ssh"
)

// OpenChannel opens a fresh session channel on the connection. Each
// collection gets its own channel, so a wedged probe never blocks the next.
func (c *Client) OpenChannel() (StreamChannel, error) {
	if c == nil || c.Client == nil {
		return nil, errors.New(errors.ErrSSH, "Not connected", "")
	}
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't open an exec channel on '%s'", c.Host),
			"Connection may have been closed. It will be redialed on the next poll.")
	}
	return &sessionChannel{session: session}, nil
}

type sessionChannel struct {
	session   *ssh.Session
	closeOnce sync.Once
	closeErr  error
}

// Exec wires stdout to a pipe and starts cmd. Stderr is dropped.
func (ch *sessionChannel) Exec(cmd string) (io.Reader, error) {
	stdout, err := ch.session.StdoutPipe()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Couldn't attach to channel output", "")
	}
	if err := ch.session.Start(cmd); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			"Remote side refused the exec request",
			"Check the account has a login shell on the remote host.")
	}
	return stdout, nil
}

func (ch *sessionChannel) Close() error {
	ch.closeOnce.Do(func() {
		err := ch.session.Close()
		// io.EOF means the remote already closed it.
		if err != nil && err != io.EOF {
			ch.closeErr = err
		}
	})
	return ch.closeErr
}
