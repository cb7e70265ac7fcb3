package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// KeyEnv names an extra private key to try, mostly for CI.
const KeyEnv = "SRVSTATS_SSH_KEY"

// buildClientConfig collects auth methods (agent first, then key files) and
// the host key policy. Keys that exist but need a passphrase are recorded in
// settings.encryptedKeys so the caller can say so.
func buildClientConfig(settings *sshSettings, opts DialOptions) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	tryKey := func(path string) {
		auth, err := keyFileAuth(path)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				settings.encryptedKeys = append(settings.encryptedKeys, path)
			}
			return
		}
		methods = append(methods, auth)
	}

	if a := agentAuth(); a != nil {
		methods = append(methods, a)
	}
	if key := os.Getenv(KeyEnv); key != "" {
		tryKey(key)
	}
	if settings.identityFile != "" {
		tryKey(settings.identityFile)
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		path := filepath.Join(homeDir(), ".ssh", name)
		if path != settings.identityFile {
			tryKey(path)
		}
	}

	if len(methods) == 0 {
		if len(settings.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				"Found SSH key(s) but they're encrypted: "+strings.Join(settings.encryptedKeys, ", "),
				addKeysHint("Add your key(s) to the agent:", settings.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opted out via config
	if !opts.InsecureIgnoreHostKey {
		cb, err := hostKeyCallbackFor(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Couldn't load known_hosts",
				"Check ~/.ssh/known_hosts is readable")
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}, nil
}

func addKeysHint(lead string, keys []string) string {
	var sb strings.Builder
	sb.WriteString(lead + "\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			sb.WriteString(fmt.Sprintf("  ssh-add --apple-use-keychain %s\n", key))
		} else {
			sb.WriteString(fmt.Sprintf("  ssh-add %s\n", key))
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

var (
	agentOnce   sync.Once
	agentClient agent.ExtendedAgent
)

// agentAuth returns agent-backed auth, or nil when there is no agent or it
// holds no keys. An empty agent placed first makes servers reject the login.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}

	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError reports a known_hosts conflict with enough detail to fix it.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that refresh or drop the stale entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	knownStr := "unknown"
	if len(known) > 0 {
		knownStr = strings.Join(known, ", ")
	}

	return fmt.Sprintf(
		"Known types: %s, server sent: %s.\n"+
			"  Refresh with: ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n"+
			"  Or remove the old entry: ssh-keygen -R %s",
		knownStr, e.ReceivedType, host, e.KnownHosts, host)
}

func hostKeyCallbackFor(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(knownHostsPath, nil, 0o600); err != nil {
			return nil, err
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err != nil && stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
