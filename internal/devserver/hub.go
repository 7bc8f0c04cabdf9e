package devserver

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/models"
)

// memberSendQueue buffers outbound envelopes per connection so one slow
// reader cannot stall the hub.
const memberSendQueue = 32

// Hub coordinates rooms across websocket connections. All room state lives
// behind one mutex; per-connection reader and writer goroutines only touch
// it through the handle* methods.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	id            string
	name          string
	applicationID uint64
	maxMembers    int
	flags         uint64
	members       []*member
	ownerIndex    int
}

type member struct {
	userID int64
	room   *room
	send   chan models.Envelope
}

// NewHub builds an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]*room),
	}
}

// Serve upgrades the request and runs the connection until it drops. The
// member is removed from its room on the way out.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	m := &member{
		userID: userID,
		send:   make(chan models.Envelope, memberSendQueue),
	}
	log := logger.FromContext(r.Context())
	log.Info().Int64("user_id", userID).Msg("member connected")

	go func() {
		for env := range m.send {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}()

	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			break
		}
		h.dispatch(m, env)
	}

	h.leave(m)
	close(m.send)
	log.Info().Int64("user_id", userID).Msg("member disconnected")
}

func (h *Hub) dispatch(m *member, env models.Envelope) {
	var err error
	switch env.Type {
	case models.MsgRoomCreate:
		var opts models.RoomCreateOptions
		if err = env.Decode(&opts); err == nil {
			h.handleCreate(m, opts)
		}
	case models.MsgRoomJoin:
		var req models.JoinRequest
		if err = env.Decode(&req); err == nil {
			h.handleJoin(m, req.RoomID)
		}
	case models.MsgRoomList:
		var opts models.RoomListOptions
		if err = env.Decode(&opts); err == nil {
			h.handleList(m, opts)
		}
	case models.MsgPing:
		var req models.PingRequest
		if err = env.Decode(&req); err == nil {
			h.handlePing(m)
		}
	default:
		h.sendError(m, "unknown request type: "+string(env.Type))
		return
	}
	if err != nil {
		h.sendError(m, "bad payload: "+err.Error())
	}
}

func (h *Hub) handleCreate(m *member, opts models.RoomCreateOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(m)

	r := &room{
		id:            uuid.NewString(),
		name:          opts.Name,
		applicationID: opts.ApplicationID,
		maxMembers:    opts.MaxMembers,
		flags:         opts.Flags,
		members:       []*member{m},
	}
	h.rooms[r.id] = r
	m.room = r

	h.log.Info().Str("room_id", r.id).Int64("owner", m.userID).Msg("room created")
	h.push(m, models.MsgRoomCreated, models.RoomCreated{
		RoomID:          r.id,
		ConnectionIndex: 0,
	})
	h.broadcastInfoLocked(r)
}

func (h *Hub) handleJoin(m *member, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		h.push(m, models.MsgServerError, models.ServerError{Message: "no such room: " + roomID})
		return
	}
	if r.maxMembers > 0 && len(r.members) >= r.maxMembers {
		h.push(m, models.MsgServerError, models.ServerError{Message: "room full: " + roomID})
		return
	}

	h.leaveLocked(m)
	r.members = append(r.members, m)
	m.room = r

	h.log.Info().Str("room_id", r.id).Int64("user_id", m.userID).Msg("member joined")
	h.broadcastInfoLocked(r)
}

func (h *Hub) handleList(m *member, opts models.RoomListOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var list models.RoomList
	for _, r := range h.rooms {
		if opts.ApplicationID != 0 && r.applicationID != opts.ApplicationID {
			continue
		}
		list.Rooms = append(list.Rooms, models.RoomSummary{
			RoomID:        r.id,
			Name:          r.name,
			ApplicationID: r.applicationID,
			MemberCount:   len(r.members),
			MaxMembers:    r.maxMembers,
		})
		if opts.MaximumCount > 0 && len(list.Rooms) >= opts.MaximumCount {
			break
		}
	}

	h.push(m, models.MsgRoomListing, list)
}

func (h *Hub) handlePing(m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m.room == nil {
		h.push(m, models.MsgServerError, models.ServerError{Message: "not in a room"})
		return
	}
	h.broadcastInfoLocked(m.room)
}

// leave removes the member from its room, reassigning ownership and
// dropping the room once empty.
func (h *Hub) leave(m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(m)
}

func (h *Hub) leaveLocked(m *member) {
	r := m.room
	if r == nil {
		return
	}
	m.room = nil

	for i, other := range r.members {
		if other != m {
			continue
		}
		r.members = append(r.members[:i], r.members[i+1:]...)
		if r.ownerIndex > i {
			r.ownerIndex--
		} else if r.ownerIndex == i {
			r.ownerIndex = 0
		}
		break
	}

	if len(r.members) == 0 {
		delete(h.rooms, r.id)
		h.log.Info().Str("room_id", r.id).Msg("room dropped")
		return
	}
	h.broadcastInfoLocked(r)
}

func (h *Hub) broadcastInfoLocked(r *room) {
	info := models.RoomInfo{
		RoomID:     r.id,
		Members:    make([]int64, len(r.members)),
		OwnerIndex: r.ownerIndex,
	}
	for i, m := range r.members {
		info.Members[i] = m.userID
	}
	for _, m := range r.members {
		h.push(m, models.MsgRoomInfo, info)
	}
}

func (h *Hub) sendError(m *member, message string) {
	h.push(m, models.MsgServerError, models.ServerError{Message: message})
}

// push queues an envelope without blocking; a member whose queue is full
// misses the update and catches up on the next one.
func (h *Hub) push(m *member, t models.MessageType, payload any) {
	env, err := models.NewEnvelope(t, payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(t)).Msg("encode push")
		return
	}
	select {
	case m.send <- env:
	default:
		h.log.Warn().Int64("user_id", m.userID).Msg("send queue full, update dropped")
	}
}
