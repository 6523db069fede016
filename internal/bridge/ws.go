package bridge

import (
	"context"
	"sync"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

type incomeKind uint

const (
	connClosed incomeKind = iota
	readFailure
	readOK
)

type income struct {
	kind incomeKind
	msg  []byte
	err  error
}

// socket is a reconnecting websocket client. Reads happen on one goroutine
// and writes on another.
type socket struct {
	url    string
	reconn time.Duration

	mu   sync.Mutex
	conn *ws.Conn
}

func dial(ctx context.Context, url string, reconn time.Duration) (*socket, error) {
	log.Debug("Dialing renderer", "url", url)

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &socket{url: url, reconn: reconn, conn: conn}, nil
}

func (s *socket) current() *ws.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *socket) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(ws.TextMessage, payload)
}

func (s *socket) read() income {
	_, msg, err := s.current().ReadMessage()
	if err != nil {
		if isClosed(err) {
			return income{kind: connClosed, err: err}
		}
		return income{kind: readFailure, err: err}
	}
	return income{kind: readOK, msg: msg}
}

// reconnect dials until it succeeds or ctx is done.
func (s *socket) reconnect(ctx context.Context) error {
	s.current().Close()
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, s.url, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			return nil
		}
		log.Debug("Reconnect failed", "url", s.url, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconn):
		}
	}
}

func (s *socket) close() error {
	conn := s.current()
	_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
