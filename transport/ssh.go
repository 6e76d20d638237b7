package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ensure interface is implemented
var _ Transport = (*SSHTransport)(nil)
var _ Dialer = (*SSHDialer)(nil)

// SSHDialer carries the settings for reaching one remote host. Dial opens
// a dedicated connection, so concurrent streams get independent TCP
// congestion windows instead of multiplexing one.
type SSHDialer struct {
	// User is the remote login name. Empty means the invoking user.
	User string

	// Host is the remote hostname or address literal, unbracketed.
	Host string

	// Port is the SSH port.
	Port int

	// IdentityFile is an optional private key path. When empty the
	// dialer falls back to the agent at SSH_AUTH_SOCK.
	IdentityFile string

	// ConnectTimeout bounds the TCP connect and SSH handshake.
	ConnectTimeout time.Duration
}

// Dial implements Dialer.
func (d *SSHDialer) Dial(ctx context.Context) (Transport, error) {
	login := d.User
	if login == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("resolve login user: %w", err)
		}
		login = u.Username
	}

	auth, agentConn, err := d.authMethods()
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User: login,
		Auth: auth,
		// Host keys are not verified.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.ConnectTimeout,
	}

	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	netDialer := &net.Dialer{Timeout: d.ConnectTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeQuiet(agentConn)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	sconn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		closeQuiet(agentConn)
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}

	return &SSHTransport{
		client:    ssh.NewClient(sconn, chans, reqs),
		agentConn: agentConn,
	}, nil
}

// authMethods picks the key auth source: an explicit identity file wins,
// otherwise the running ssh-agent. The returned conn, when non-nil, is
// the agent socket and must be closed with the transport.
func (d *SSHDialer) authMethods() ([]ssh.AuthMethod, net.Conn, error) {
	if d.IdentityFile != "" {
		key, err := os.ReadFile(d.IdentityFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("parse identity file %s: %w", d.IdentityFile, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil, nil
	}

	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, errors.New("no identity file given and no ssh-agent running")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, fmt.Errorf("connect ssh-agent: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeysCallback(agent.NewClient(conn).Signers)}, conn, nil
}

func closeQuiet(c net.Conn) {
	if c != nil {
		c.Close()
	}
}

// SSHTransport implements Transport by running POSIX shell commands over
// one SSH connection, one session per operation.
type SSHTransport struct {
	client    *ssh.Client
	agentConn net.Conn
}

// Remote command lines, kept as plain builders so the wire syntax is
// testable without a server.

func statCmd(path string) string {
	return "wc -c < " + shellQuote(path)
}

func rangeCmd(path string, offset, length int64) string {
	// tail -c +N is one-based.
	return fmt.Sprintf("tail -c +%d %s | head -c %d", offset+1, shellQuote(path), length)
}

func createCmd(path string) string {
	return "cat > " + shellQuote(path)
}

func concatCmd(parts []string, dst string) string {
	return "cat " + shellQuoteAll(parts) + " > " + shellQuote(dst)
}

func chmodCmd(path string, mode fs.FileMode) string {
	return fmt.Sprintf("chmod %03o %s", mode.Perm(), shellQuote(path))
}

func mkdirCmd(path string) string {
	return "mkdir -p " + shellQuote(path)
}

func removeCmd(paths []string) string {
	return "rm -f " + shellQuoteAll(paths)
}

// run executes cmd in its own session and waits for it, honoring ctx.
func (t *SSHTransport) run(ctx context.Context, cmd string) error {
	sess, err := t.client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	var stderr bytes.Buffer
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		sess.Close()
		return ctx.Err()
	case err := <-done:
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("remote: %s: %w", msg, err)
			}
			return fmt.Errorf("remote command failed: %w", err)
		}
		return nil
	}
}

// output is run with captured stdout, trimmed.
func (t *SSHTransport) output(ctx context.Context, cmd string) (string, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		sess.Close()
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", fmt.Errorf("remote: %s: %w", msg, err)
			}
			return "", fmt.Errorf("remote command failed: %w", err)
		}
		return strings.TrimSpace(stdout.String()), nil
	}
}

// Stat implements Transport. Permission bits are not reported over this
// backend; Mode is always zero.
func (t *SSHTransport) Stat(ctx context.Context, path string) (FileInfo, error) {
	out, err := t.output(ctx, statCmd(path))
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	size, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: unexpected size %q", path, out)
	}
	return FileInfo{Size: size}, nil
}

// OpenRange implements Transport by streaming tail|head output.
func (t *SSHTransport) OpenRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("open stdout: %w", err)
	}

	if err := sess.Start(rangeCmd(path, offset, length)); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start remote read: %w", err)
	}

	r := &remoteReader{sess: sess, r: stdout, closed: make(chan struct{})}
	go r.watch(ctx)
	return r, nil
}

// remoteReader streams one command's stdout. Closing tears the session
// down whether or not the stream was drained.
type remoteReader struct {
	sess   *ssh.Session
	r      io.Reader
	closed chan struct{}
}

// watch tears the session down on cancellation so a blocked Read returns.
func (r *remoteReader) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		r.sess.Close()
	case <-r.closed:
	}
}

func (r *remoteReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *remoteReader) Close() error {
	close(r.closed)
	r.sess.Close()
	return nil
}

// Create implements Transport by feeding a remote cat through the session
// stdin. The command's exit status is surfaced by Close.
func (t *SSHTransport) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("open stdin: %w", err)
	}

	var stderr bytes.Buffer
	sess.Stderr = &stderr

	if err := sess.Start(createCmd(path)); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start remote write: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	w := &remoteWriter{
		sess:   sess,
		stdin:  stdin,
		stderr: &stderr,
		done:   done,
		closed: make(chan struct{}),
	}
	go w.watch(ctx)
	return w, nil
}

type remoteWriter struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	done   <-chan error
	closed chan struct{}
}

// watch tears the session down on cancellation so a blocked Write returns.
func (w *remoteWriter) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.sess.Close()
	case <-w.closed:
	}
}

func (w *remoteWriter) Write(p []byte) (int, error) {
	return w.stdin.Write(p)
}

func (w *remoteWriter) Close() error {
	// EOF on stdin lets the remote cat exit and report its status.
	_ = w.stdin.Close()
	err := <-w.done
	close(w.closed)
	w.sess.Close()
	if err != nil {
		if msg := strings.TrimSpace(w.stderr.String()); msg != "" {
			return fmt.Errorf("remote write: %s: %w", msg, err)
		}
		return fmt.Errorf("remote write: %w", err)
	}
	return nil
}

// Concat implements Transport with a single ordered remote cat.
func (t *SSHTransport) Concat(ctx context.Context, parts []string, dst string) error {
	if err := t.run(ctx, concatCmd(parts, dst)); err != nil {
		return fmt.Errorf("concat to %s: %w", dst, err)
	}
	return nil
}

// Chmod implements Transport.
func (t *SSHTransport) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	if err := t.run(ctx, chmodCmd(path, mode)); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// MkdirAll implements Transport.
func (t *SSHTransport) MkdirAll(ctx context.Context, path string) error {
	if err := t.run(ctx, mkdirCmd(path)); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Remove implements Transport.
func (t *SSHTransport) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := t.run(ctx, removeCmd(paths)); err != nil {
		return fmt.Errorf("remove artifacts: %w", err)
	}
	return nil
}

// Close implements Transport. Closing the client unblocks any session
// still streaming on this connection.
func (t *SSHTransport) Close() error {
	err := t.client.Close()
	if t.agentConn != nil {
		t.agentConn.Close()
	}
	return err
}
