// Package broadcast streams scan events as JSON lines to every client
// connected to a Unix domain socket.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/goatnetwork/qlink/internal/state"
	log "github.com/sirupsen/logrus"
)

const ChannelCapacity = 128

type client struct {
	conn net.Conn
	out  chan []byte
}

type UnixBroadcast struct {
	state    *state.State
	path     string
	listener net.Listener

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	logger *log.Entry
}

// NewUnixBroadcast binds path, creating missing parent directories and
// replacing a stale socket file left by a previous run.
func NewUnixBroadcast(st *state.State, path string) (*UnixBroadcast, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if _, err := os.Lstat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket %s: %w", path, err)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to bind unix socket %s: %w", path, err)
	}

	return &UnixBroadcast{
		state:    st,
		path:     path,
		listener: listener,
		clients:  make(map[*client]struct{}),
		logger:   log.WithFields(log.Fields{"module": "broadcast", "socket": path}),
	}, nil
}

func (b *UnixBroadcast) Path() string {
	return b.path
}

// Start accepts clients and forwards decoded payloads and scan failures from
// the state event bus until ctx is done, then closes the socket.
func (b *UnixBroadcast) Start(ctx context.Context) {
	decodedCh := make(chan interface{}, ChannelCapacity)
	failedCh := make(chan interface{}, ChannelCapacity)
	if b.state != nil {
		b.state.EventBus.Subscribe(state.PayloadDecoded, decodedCh)
		b.state.EventBus.Subscribe(state.ScanFailed, failedCh)
		defer b.state.EventBus.Unsubscribe(state.PayloadDecoded, decodedCh)
		defer b.state.EventBus.Unsubscribe(state.ScanFailed, failedCh)
	}

	go b.acceptLoop()
	b.logger.Info("Unix broadcast started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping the unix broadcast...")
			if err := b.Close(); err != nil {
				b.logger.Debugf("Failed to close unix broadcast: %v", err)
			}
			return
		case event := <-decodedCh:
			if decoded, ok := event.(state.DecodedEvent); ok {
				if err := b.SendValue(decoded.Rendered.JSON); err != nil {
					b.logger.Warnf("Failed to broadcast payload: %v", err)
				}
			}
		case event := <-failedCh:
			if failed, ok := event.(state.FailedEvent); ok && failed.Err != nil {
				if err := b.SendError(failed.Err.Error()); err != nil {
					b.logger.Warnf("Failed to broadcast error: %v", err)
				}
			}
		}
	}
}

func (b *UnixBroadcast) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			b.logger.Warnf("Unix socket accept error: %v", err)
			continue
		}

		c := &client{conn: conn, out: make(chan []byte, ChannelCapacity)}
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.clients[c] = struct{}{}
		b.mu.Unlock()

		go b.writeLoop(c)
	}
}

func (b *UnixBroadcast) writeLoop(c *client) {
	defer b.drop(c)
	for line := range c.out {
		if _, err := c.conn.Write(line); err != nil {
			b.logger.Debugf("Unix socket client write error: %v", err)
			return
		}
	}
}

// drop removes c. It is safe to call more than once.
func (b *UnixBroadcast) drop(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.out)
	}
	b.mu.Unlock()
	c.conn.Close()
}

// SendValue writes v as one JSON line to every connected client. A client
// that has fallen ChannelCapacity lines behind is disconnected.
func (b *UnixBroadcast) SendValue(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.SendRaw(payload)
}

func (b *UnixBroadcast) SendRaw(payload []byte) error {
	line := make([]byte, len(payload)+1)
	copy(line, payload)
	line[len(payload)] = '\n'

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return net.ErrClosed
	}
	for c := range b.clients {
		select {
		case c.out <- line:
		default:
			b.logger.Warn("Dropping slow unix socket client")
			delete(b.clients, c)
			close(c.out)
		}
	}
	return nil
}

func (b *UnixBroadcast) SendError(message string) error {
	return b.SendValue(map[string]string{"error": message})
}

func (b *UnixBroadcast) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client and removes the socket file.
func (b *UnixBroadcast) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for c := range b.clients {
		delete(b.clients, c)
		close(c.out)
		c.conn.Close()
	}
	b.mu.Unlock()

	err := b.listener.Close()
	if rmErr := os.Remove(b.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		b.logger.Debugf("Failed to cleanup unix socket: %v", rmErr)
	}
	return err
}
