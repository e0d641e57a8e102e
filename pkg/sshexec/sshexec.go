// Package sshexec implements the SSH executor (C7): pooled
// connections, command execution with timeout and output-size caps,
// and algorithm negotiation with fallback to library defaults.
package sshexec

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/networking"
	"github.com/stacklok/mcpgateway/pkg/security"
)

// Request is the direct-mode SSH tool's input.
type Request struct {
	Host     string
	Port     int
	Username string
	Password string
	KeyRef   string // PEM-encoded private key material, resolved by the caller
	Command  string
	Timeout  time.Duration
}

// Result is the direct-mode SSH tool's output.
type Result struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMs int64
}

// Algorithms lists the operator-configured negotiation preferences.
type Algorithms struct {
	Enabled     bool
	Fallback    bool
	KexList     []string
	CipherList  []string
	HMACList    []string
	HostKeyList []string
}

// Options configures an Executor.
type Options struct {
	DefaultTimeout        time.Duration
	PoolSize              int
	IdleLinger            time.Duration
	AllowLocalConnections bool
	Algorithms            Algorithms
	MaxOutputBytes        int64
	CommandBlocklist      []string
	RateLimit             security.RateLimitOptions
	SSHHostOverride       security.Predicate
	CommandOverride       security.Predicate
	OverrideStrategy      security.Strategy
}

// Executor issues direct-mode SSH commands through a pooled connection set.
type Executor struct {
	opts        Options
	validator   *security.Validator
	rateLimiter *security.RateLimiter
	pool        *pool
}

// New builds an Executor.
func New(opts Options) *Executor {
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.IdleLinger == 0 {
		opts.IdleLinger = 5 * time.Minute
	}
	if opts.MaxOutputBytes == 0 {
		opts.MaxOutputBytes = 1 << 20
	}
	return &Executor{
		opts:        opts,
		validator: security.New(security.Options{
			AllowLocalConnections: opts.AllowLocalConnections,
			SSHHostOverride:       opts.SSHHostOverride,
			CommandOverride:       opts.CommandOverride,
			OverrideStrategy:      opts.OverrideStrategy,
		}),
		rateLimiter: security.NewRateLimiter(opts.RateLimit),
		pool:        newPool(opts.PoolSize, opts.IdleLinger),
	}
}

// Execute runs command on host via SSH, enforcing the configured
// timeout, security pre-checks, and command blocklist.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	if !e.rateLimiter.Allow() {
		return nil, gwerrors.NewExecutionFailedError("ssh_exec: rate limit exceeded", nil)
	}

	host, port, err := networking.SplitHostPort(req.Host, defaultPort(req.Port))
	if err != nil {
		return nil, gwerrors.NewExecutionInvalidParametersError("ssh_exec: invalid host", err)
	}

	if err := e.validator.CheckSSHHost(host, port); err != nil {
		return nil, gwerrors.NewExecutionSecurityViolationError("ssh_exec: host rejected", err)
	}
	if err := e.validator.CheckCommand(req.Command); err != nil {
		return nil, gwerrors.NewExecutionPermissionDeniedError("ssh_exec: command rejected by policy", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.opts.DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fingerprint := credentialFingerprint(req.Password, req.KeyRef)
	client, err := e.pool.get(poolKey{host: host, port: port, username: req.Username, fingerprint: fingerprint},
		func() (*ssh.Client, error) { return e.dial(host, port, req) })
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := runCommand(execCtx, client, req.Command, e.opts.MaxOutputBytes)
	duration := time.Since(start)
	if err != nil {
		e.pool.discard(poolKey{host: host, port: port, username: req.Username, fingerprint: fingerprint})
		if execCtx.Err() != nil {
			return nil, gwerrors.NewExecutionTimeoutError("ssh_exec: timed out", err)
		}
		return nil, gwerrors.NewExecutionFailedError("ssh_exec: command failed", err)
	}
	result.DurationMs = duration.Milliseconds()
	return result, nil
}

func defaultPort(p int) int {
	if p == 0 {
		return 22
	}
	return p
}

func credentialFingerprint(password, keyRef string) string {
	h := sha256.Sum256([]byte(password + "\x00" + keyRef))
	return hex.EncodeToString(h[:])
}

func (e *Executor) dial(host string, port int, req Request) (*ssh.Client, error) {
	config, err := e.buildClientConfig(req)
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil && e.opts.Algorithms.Enabled && e.opts.Algorithms.Fallback && isNegotiationError(err) {
		fallback := defaultClientConfig(req)
		client, err = ssh.Dial("tcp", addr, fallback)
	}
	if err != nil {
		return nil, gwerrors.NewConnectionFailedError("ssh_exec: dial "+addr+" failed", err)
	}
	return client, nil
}

func (e *Executor) buildClientConfig(req Request) (*ssh.ClientConfig, error) {
	auth, err := authMethods(req)
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            req.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // operator-configured destinations, no known_hosts store in this gateway
		Timeout:         10 * time.Second,
	}
	if e.opts.Algorithms.Enabled {
		config.Config = ssh.Config{
			KeyExchanges: e.opts.Algorithms.KexList,
			Ciphers:      e.opts.Algorithms.CipherList,
			MACs:         e.opts.Algorithms.HMACList,
		}
		if len(e.opts.Algorithms.HostKeyList) > 0 {
			config.HostKeyAlgorithms = e.opts.Algorithms.HostKeyList
		}
	}
	return config, nil
}

func defaultClientConfig(req Request) *ssh.ClientConfig {
	auth, _ := authMethods(req)
	return &ssh.ClientConfig{
		User:            req.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // library-default negotiation fallback path
		Timeout:         10 * time.Second,
	}
}

func authMethods(req Request) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if req.KeyRef != "" {
		signer, err := ssh.ParsePrivateKey([]byte(req.KeyRef))
		if err != nil {
			return nil, gwerrors.NewAuthenticationFailedError("ssh_exec: parsing private key", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if req.Password != "" {
		methods = append(methods, ssh.Password(req.Password))
	}
	if len(methods) == 0 {
		return nil, gwerrors.NewAuthenticationFailedError("ssh_exec: no credential supplied", nil)
	}
	return methods, nil
}

func isNegotiationError(err error) bool {
	if err == nil {
		return false
	}
	// golang.org/x/crypto/ssh surfaces negotiation mismatches as plain
	// string errors ("ssh: no common algorithm for ..."); string match
	// is the library's own documented convention for this case.
	msg := err.Error()
	return strings.Contains(msg, "no common algorithm") || strings.Contains(msg, "handshake failed")
}

func runCommand(ctx context.Context, client *ssh.Client, command string, maxBytes int64) (*Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &limitedWriter{w: &stdoutBuf, max: maxBytes}
	session.Stderr = &limitedWriter{w: &stderrBuf, max: maxBytes}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	case err := <-done:
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				exitCode = exitErr.ExitStatus()
			} else {
				return nil, err
			}
		}
		return &Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String(), ExitCode: exitCode}, nil
	}
}

type limitedWriter struct {
	w   io.Writer
	max int64
	n   int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n >= l.max {
		return len(p), nil // silently drop past the cap, command keeps running
	}
	remaining := l.max - l.n
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.w.Write(p)
	l.n += int64(n)
	return len(p), err
}
