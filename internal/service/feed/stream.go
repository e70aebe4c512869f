package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	applogger "LeoneAI/pkg/logger"

	"github.com/gorilla/websocket"
)

// State is the connection state of one subscription.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const errBuffer = 16

// stream is the connection state machine shared by every channel type.
type stream[T any] struct {
	c         *Client
	channel   string
	url       string
	decode    func([]byte) ([]T, error)
	hello     interface{}
	reconnect bool
	log       *applogger.Logger

	out      chan T
	errs     chan error
	state    atomic.Int32
	attempts atomic.Int64

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	conn    *websocket.Conn
	timer   *time.Timer
	closed  bool
	lastErr error
	wg      sync.WaitGroup
	done    chan struct{}
}

func newStream[T any](c *Client, channel, u string, decode func([]byte) ([]T, error), hello interface{}, reconnect bool) *stream[T] {
	return &stream[T]{
		c:         c,
		channel:   channel,
		url:       u,
		decode:    decode,
		hello:     hello,
		reconnect: reconnect,
		log:       c.log.Named("feed").With(applogger.String("channel", channel)),
		out:       make(chan T, c.bufferSize),
		errs:      make(chan error, errBuffer),
		done:      make(chan struct{}),
	}
}

func (s *stream[T]) start(parent context.Context) {
	s.ctx, s.cancel = context.WithCancel(parent)
	s.mu.Lock()
	s.wg.Add(1)
	s.mu.Unlock()
	go s.run()

	go func() {
		select {
		case <-s.ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
}

// run performs one connect attempt and, on success, reads until the socket fails.
func (s *stream[T]) run() {
	defer s.wg.Done()

	s.setState(Connecting)
	s.attempts.Add(1)
	conn, resp, err := s.c.dialer.DialContext(s.ctx, s.url, s.c.header())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.lastErr = nil
	s.mu.Unlock()
	s.setState(Connected)
	s.log.Info("connected")

	if s.hello != nil {
		if err := conn.WriteJSON(s.hello); err != nil {
			s.dropConn(conn)
			s.fail(err)
			return
		}
	}

	pingDone := make(chan struct{})
	if s.c.pingInterval > 0 {
		s.wg.Add(1)
		go s.ping(conn, pingDone)
	}

	readErr := s.readLoop(conn)
	close(pingDone)
	if s.dropConn(conn) {
		return
	}
	s.fail(readErr)
}

func (s *stream[T]) readLoop(conn *websocket.Conn) error {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		items, derr := s.decode(b)
		for _, item := range items {
			select {
			case s.out <- item:
			default:
				s.log.Debug("consumer too slow, dropping update")
			}
		}
		if derr != nil {
			var perr *ParseError
			if errors.As(derr, &perr) && s.c.observer != nil {
				s.c.observer.ObserveParseError(s.channel)
			}
			s.log.Warn("frame rejected", applogger.Error(derr))
			s.emit(derr)
		}
	}
}

func (s *stream[T]) ping(conn *websocket.Conn, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// dropConn forgets and closes conn; it reports whether the stream was closed.
func (s *stream[T]) dropConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	closed := s.closed
	s.mu.Unlock()
	_ = conn.Close()
	return closed
}

// fail moves to Disconnected, surfaces err and schedules the single reconnect.
func (s *stream[T]) fail(err error) {
	s.setState(Disconnected)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastErr = err
	s.log.Warn("disconnected", applogger.Error(err))
	s.emitLocked(err)

	if !s.reconnect || s.timer != nil {
		return
	}
	if s.c.observer != nil {
		s.c.observer.ObserveReconnect(s.channel)
	}
	s.timer = time.AfterFunc(s.c.reconnectDelay, func() {
		s.mu.Lock()
		s.timer = nil
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		s.run()
	})
}

func (s *stream[T]) emit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.emitLocked(err)
	}
}

func (s *stream[T]) emitLocked(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *stream[T]) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next && s.c.observer != nil {
		s.c.observer.ObserveFeedState(s.channel, next.String())
	}
}

// State returns the current connection state.
func (s *stream[T]) State() State {
	return State(s.state.Load())
}

// Attempts returns the number of dial attempts so far.
func (s *stream[T]) Attempts() int64 {
	return s.attempts.Load()
}

// LastError returns the most recent connection error, cleared on connect.
func (s *stream[T]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Errors delivers connection failures, server error frames and parse errors.
// Delivery is best effort; the channel is closed by Close.
func (s *stream[T]) Errors() <-chan error {
	return s.errs
}

// Done is closed once the stream has fully shut down.
func (s *stream[T]) Done() <-chan struct{} {
	return s.done
}

// Close cancels any pending reconnect, closes the socket and waits for the
// reader to exit. Safe to call more than once.
func (s *stream[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.wg.Wait()
	s.setState(Disconnected)

	close(s.out)
	close(s.errs)
	close(s.done)
	s.log.Debug("closed")
	return nil
}
