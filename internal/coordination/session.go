// Package coordination implements the client side of the room-coordination
// service.
//
// All requests are fire-and-forget: they are queued to a writer goroutine
// and the answers arrive asynchronously as typed response snapshots. Every
// snapshot carries a version counter that increments on each replacement,
// so a poll-driven consumer can detect changes by comparing versions.
// Inequality is the test, never ordering, because a counter may reset or
// wrap over a long session.
//
// The session is advanced once per tick by the orchestrator and never
// blocks. A transport failure observed by Advance is fatal to the session:
// there is no reconnect at this layer.
package coordination

import (
	"errors"
	"fmt"
	"net/http"

	"time"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/models"
)

// Observed pairs a response payload with its version counter. The zero
// value (version 0) means no response of this kind has arrived yet.
type Observed[T any] struct {
	Version uint64
	Payload T
}

// replace installs a new payload and bumps the version.
func (o *Observed[T]) replace(payload T) {
	o.Payload = payload
	o.Version++
}

// ErrSendQueueFull is reported by Advance when the outbound queue
// overflowed. A full queue means the peer stopped reading; the session is
// considered broken.
var ErrSendQueueFull = errors.New("coordination: send queue full")

const sendQueueSize = 64

// Session is the coordination client. Exported methods must be called from
// the orchestrator goroutine; the internal reader and writer goroutines own
// the websocket connection.
type Session struct {
	log  *logger.Logger
	conn *websocket.Conn

	inbound  chan models.Envelope
	outbound chan models.Envelope
	ioErr    chan error

	roomInfo    Observed[models.RoomInfo]
	roomCreated Observed[models.RoomCreated]
	roomList    Observed[models.RoomList]

	fatal error
}

// Dial connects to the coordination service, presenting the identity
// session token, and starts the reader and writer goroutines.
func Dial(cfg config.ClientCoordination, sessionToken string, log *logger.Logger) (*Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+sessionToken)

	conn, resp, err := dialer.Dial(cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("coordination dial %s: http %d: %w", cfg.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("coordination dial %s: %w", cfg.URL, err)
	}

	s := newSession(log)
	s.conn = conn
	go s.readLoop()
	go s.writeLoop()

	return s, nil
}

// newSession builds the channel plumbing without a connection. Used by Dial
// and directly by tests.
func newSession(log *logger.Logger) *Session {
	return &Session{
		log:      log,
		inbound:  make(chan models.Envelope, 64),
		outbound: make(chan models.Envelope, sendQueueSize),
		ioErr:    make(chan error, 2),
	}
}

func (s *Session) readLoop() {
	for {
		var env models.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			s.ioErr <- fmt.Errorf("coordination read: %w", err)
			return
		}
		s.inbound <- env
	}
}

func (s *Session) writeLoop() {
	for env := range s.outbound {
		if err := s.conn.WriteJSON(env); err != nil {
			s.ioErr <- fmt.Errorf("coordination write: %w", err)
			return
		}
	}
}

// Advance drains inbound responses into the observed snapshots and surfaces
// any transport failure. A non-nil return is fatal: the session is unusable
// afterwards and every subsequent Advance returns the same error.
func (s *Session) Advance(now time.Time) error {
	if s.fatal != nil {
		return s.fatal
	}

	// Deliver responses that arrived before any failure.
drain:
	for {
		select {
		case env := <-s.inbound:
			s.apply(env)
		default:
			break drain
		}
	}

	select {
	case err := <-s.ioErr:
		s.fatal = err
		return s.fatal
	default:
	}
	return nil
}

func (s *Session) apply(env models.Envelope) {
	switch env.Type {
	case models.MsgRoomInfo:
		var p models.RoomInfo
		if err := env.Decode(&p); err != nil {
			s.log.Warn().Err(err).Msg("bad room_info payload")
			return
		}
		s.roomInfo.replace(p)

	case models.MsgRoomCreated:
		var p models.RoomCreated
		if err := env.Decode(&p); err != nil {
			s.log.Warn().Err(err).Msg("bad room_created payload")
			return
		}
		s.roomCreated.replace(p)

	case models.MsgRoomListing:
		var p models.RoomList
		if err := env.Decode(&p); err != nil {
			s.log.Warn().Err(err).Msg("bad room_listing payload")
			return
		}
		s.roomList.replace(p)

	case models.MsgServerError:
		var p models.ServerError
		if err := env.Decode(&p); err == nil {
			s.log.Warn().Str("message", p.Message).Msg("coordination server error")
		}

	default:
		s.log.Debug().Str("type", string(env.Type)).Msg("ignoring unknown envelope")
	}
}

// CreateRoom queues a room creation request.
func (s *Session) CreateRoom(opts models.RoomCreateOptions) {
	s.send(models.MsgRoomCreate, opts)
}

// JoinRoom queues a request to join the room with the given id.
func (s *Session) JoinRoom(roomID string) {
	s.send(models.MsgRoomJoin, models.JoinRequest{RoomID: roomID})
}

// ListRooms queues a room listing request.
func (s *Session) ListRooms(opts models.RoomListOptions) {
	s.send(models.MsgRoomList, opts)
}

// Ping queues a ping carrying the client's knowledge value.
func (s *Session) Ping(knowledge uint64) {
	s.send(models.MsgPing, models.PingRequest{Knowledge: knowledge})
}

func (s *Session) send(t models.MessageType, payload any) {
	env, err := models.NewEnvelope(t, payload)
	if err != nil {
		s.log.Error().Err(err).Str("type", string(t)).Msg("encode request")
		return
	}

	select {
	case s.outbound <- env:
	default:
		if s.fatal == nil {
			s.fatal = ErrSendQueueFull
		}
	}
}

// RoomInfo returns the latest membership snapshot of the connected room.
func (s *Session) RoomInfo() Observed[models.RoomInfo] {
	return s.roomInfo
}

// RoomCreated returns the latest room creation confirmation.
func (s *Session) RoomCreated() Observed[models.RoomCreated] {
	return s.roomCreated
}

// RoomList returns the latest room listing.
func (s *Session) RoomList() Observed[models.RoomList] {
	return s.roomList
}

// Close tears down the websocket connection and stops the writer goroutine.
func (s *Session) Close() error {
	close(s.outbound)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
