package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds the TCP connect plus SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// DefaultPingTimeout bounds one keepalive round trip.
const DefaultPingTimeout = 2 * time.Second

// ErrPingTimeout is the cause of the error BoundedPing returns on expiry.
var ErrPingTimeout = stderrors.New("keepalive timed out")

// Client wraps an SSH connection with the alias it was dialed with.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)

	// PingTimeout bounds Ping. Zero means DefaultPingTimeout.
	PingTimeout time.Duration
}

// DialOptions tunes how Dial connects.
type DialOptions struct {
	// Timeout for connect + handshake. Zero means DefaultDialTimeout.
	Timeout time.Duration

	// InsecureIgnoreHostKey skips known_hosts verification.
	InsecureIgnoreHostKey bool
}

// Dial establishes an SSH connection to the specified host.
// The host can be:
//   - An SSH config alias (e.g., "web")
//   - A hostname (e.g., "192.168.1.100")
//   - A user@hostname (e.g., "deploy@192.168.1.100")
//   - A hostname:port (e.g., "192.168.1.100:2222")
//
// Connection settings are resolved from ~/.ssh/config when available.
func Dial(host string, opts DialOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDialTimeout
	}

	settings := resolveSSHSettings(host)

	config, err := buildClientConfig(settings, opts)
	if err != nil {
		var sErr *errors.Error
		if stderrors.As(err, &sErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, opts.Timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	// The handshake gets the same budget as the connect.
	_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	pingTimeout := DefaultPingTimeout
	if opts.Timeout < pingTimeout {
		pingTimeout = opts.Timeout
	}

	return &Client{
		Client:      ssh.NewClient(sshConn, chans, reqs),
		Host:        host,
		Address:     address,
		PingTimeout: pingTimeout,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// Ping checks liveness with a global keepalive request, which is much cheaper
// than opening a session. A half-open connection never answers, so the
// request is bounded by PingTimeout and the client is closed when it expires.
func (c *Client) Ping() error {
	if c == nil || c.Client == nil {
		return errors.New(errors.ErrSSH, "Not connected", "")
	}
	err := BoundedPing(func() error {
		_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
		return err
	}, c.PingTimeout)
	if stderrors.Is(err, ErrPingTimeout) {
		_ = c.Client.Close()
	}
	return err
}

// BoundedPing runs ping and waits at most timeout for it to return. Zero
// means DefaultPingTimeout. On expiry it returns an SSH error wrapping
// ErrPingTimeout and leaves ping running; closing the connection is what
// unblocks it.
func BoundedPing(ping func() error, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}

	done := make(chan error, 1)
	go func() {
		done <- ping()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errors.WrapWithCode(ErrPingTimeout, errors.ErrSSH,
			fmt.Sprintf("Keepalive got no answer within %s", timeout),
			"The connection is probably half-open. It will be redialed.")
	}
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(errStr, "no route to host"), strings.Contains(errStr, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(errStr, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return addKeysHint("Your key(s) are encrypted. Add them to the agent:", encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
