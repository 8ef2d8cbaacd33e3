package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edgesight/go-signage/internal/log"
)

const (
	// playerWriteWait bounds how long a slow player can stall the pipeline.
	playerWriteWait = 5 * time.Second

	// playerDialWait bounds connection attempts.
	playerDialWait = 5 * time.Second
)

// PlayerSink pushes selection events to an external display player over a
// websocket. The connection is dialed lazily and re-dialed after failures,
// so a player restart costs at most the frames published while it was down.
type PlayerSink struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewPlayerSink creates a sink for the player at the given ws:// URL.
func NewPlayerSink(url string) *PlayerSink {
	return &PlayerSink{url: url}
}

// Publish sends the event to the player, reconnecting once on failure.
func (p *PlayerSink) Publish(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if err := p.dial(); err != nil {
			return err
		}
	}

	p.conn.SetWriteDeadline(time.Now().Add(playerWriteWait))
	if err := p.conn.WriteJSON(ev); err != nil {
		p.conn.Close()
		p.conn = nil
		log.Warn("player write failed, will redial", "err", err)
		return fmt.Errorf("write to player: %w", err)
	}
	return nil
}

func (p *PlayerSink) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: playerDialWait}
	conn, _, err := dialer.Dial(p.url, nil)
	if err != nil {
		return fmt.Errorf("dial player %s: %w", p.url, err)
	}
	p.conn = conn
	log.Info("connected to display player", "url", p.url)
	return nil
}

// Close closes the player connection if open.
func (p *PlayerSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
