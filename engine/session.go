package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/exchanges/strategy/twap"
	"github.com/thrasher-corp/twapper/log"
)

type sessionState int

const (
	awaitingRequest sessionState = iota
	running
	closed
)

func (s sessionState) String() string {
	switch s {
	case awaitingRequest:
		return "awaiting request"
	case running:
		return "running"
	default:
		return "closed"
	}
}

// session is the websocket side of one execution. It implements
// common.Channel.
type session struct {
	conn *websocket.Conn

	mu           sync.Mutex
	state        sessionState
	terminalSent bool

	signals   chan common.ControlSignal
	readDone  chan struct{}
	readErr   error
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, readLimit int64) *session {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &session{
		conn:     conn,
		signals:  make(chan common.ControlSignal),
		readDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// readStart blocks for the first frame and decodes it as a start request.
// On success the session is running and control frames are read in the
// background.
func (s *session) readStart(defaults twap.Request) (twap.Request, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != awaitingRequest {
		return defaults, fmt.Errorf("%w: %s", errUnexpectedState, state)
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return defaults, fmt.Errorf("reading start request: %w", err)
	}
	req, err := DecodeStartRequest(data, defaults)
	if err != nil {
		return req, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != awaitingRequest {
		return req, errChannelClosed
	}
	s.state = running
	go s.readLoop()
	return req, nil
}

func (s *session) readLoop() {
	defer close(s.readDone)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = err
			return
		}
		sig, err := DecodeControlSignal(data)
		if err != nil {
			s.readErr = fmt.Errorf("control message %q: %w", data, err)
			return
		}
		select {
		case s.signals <- sig:
		case <-s.closed:
			return
		}
	}
}

// Send writes one event as a JSON text frame
func (s *session) Send(_ context.Context, e common.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == closed || s.terminalSent {
		return errChannelClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(e); err != nil {
		return err
	}
	if e.Status.IsTerminal() {
		s.terminalSent = true
	}
	return nil
}

// Receive returns the next control signal
func (s *session) Receive(ctx context.Context) (common.ControlSignal, error) {
	select {
	case sig := <-s.signals:
		return sig, nil
	case <-s.readDone:
		return common.ControlSignal{}, s.readErr
	case <-s.closed:
		return common.ControlSignal{}, errChannelClosed
	case <-ctx.Done():
		return common.ControlSignal{}, ctx.Err()
	}
}

// Close sends a normal closure frame and closes the connection. Only the
// first call has an effect.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = closed
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout)); werr != nil {
			log.Debugf(log.WebsocketMgr, "Close frame not sent: %v", werr)
		}
		s.mu.Unlock()
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// requestCancel delivers a cancel signal as if the observer had sent one
func (s *session) requestCancel(ctx context.Context) error {
	select {
	case s.signals <- common.ControlSignal{Action: common.ActionCancel}:
		return nil
	case <-s.closed:
		return errChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reject reports a start request failure and closes the session
func (s *session) reject(ctx context.Context, cause error) common.Event {
	e := common.Event{Status: common.StatusError, Message: cause.Error(), Time: time.Now()}
	if err := s.Send(ctx, e); err != nil {
		log.Debugf(log.WebsocketMgr, "Rejection not delivered: %v", err)
	}
	if err := s.Close(); err != nil {
		log.Debugf(log.WebsocketMgr, "Closing rejected session: %v", err)
	}
	return e
}
