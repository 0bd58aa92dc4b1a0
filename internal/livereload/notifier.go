// Package livereload tells a socket.io endpoint which output files changed
// after each watch cycle, so connected browsers can refresh.
package livereload

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Notifier holds one persistent socket.io client, connected lazily on the
// first notification and re-established when it drops.
type Notifier struct {
	cfg        config.LiveReload
	outputRoot string
	baseURL    string
	path       string

	mu     sync.Mutex
	client *socket.Socket
}

// New validates cfg and returns a Notifier. Written files are reported
// relative to outputRoot.
func New(cfg config.LiveReload, outputRoot string) (*Notifier, error) {
	cfg.ApplyDefaults()
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse live reload URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("live reload URL %q must include a scheme and host", cfg.URL)
	}
	return &Notifier{
		cfg:        cfg,
		outputRoot: outputRoot,
		baseURL:    fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host),
		path:       parsed.Path,
	}, nil
}

// Notify emits the configured event with the changed files.
func (n *Notifier) Notify(ctx context.Context, files []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.client == nil || !n.client.Connected() {
		if n.client != nil {
			n.client.Disconnect()
			n.client = nil
		}
		client, err := n.connect(ctx)
		if err != nil {
			return err
		}
		n.client = client
	}

	payload := map[string]any{"files": n.relative(files)}
	ctxlog.FromContext(ctx).Debug("Emitting live reload event.", "event", n.cfg.Event, "files", len(files))
	n.client.Emit(n.cfg.Event, payload)
	return nil
}

// Close disconnects the client, if any.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		n.client.Disconnect()
		n.client = nil
	}
	return nil
}

func (n *Notifier) relative(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if rel, err := filepath.Rel(n.outputRoot, f); err == nil && n.outputRoot != "" {
			f = rel
		}
		out = append(out, filepath.ToSlash(f))
	}
	return out
}

func (n *Notifier) connect(ctx context.Context) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("url", n.cfg.URL, "namespace", n.cfg.Namespace)

	opts := socket.DefaultOptions()
	if n.path != "" {
		opts.SetPath(n.path)
	}
	if n.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	manager := socket.NewManager(n.baseURL, opts)
	io := manager.Socket(n.cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	io.Connect()

	timer := time.NewTimer(n.cfg.Timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("live reload connection failed: %w", err)
		}
		logger.Info("Live reload connected.", "sid", io.Id())
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for live reload connection")
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for live reload connection", n.cfg.Timeout)
	}
}
