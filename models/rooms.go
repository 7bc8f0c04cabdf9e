package models

// RoomCreateOptions describes a room creation request sent to the
// coordination service.
type RoomCreateOptions struct {
	// ApplicationID identifies the application the room belongs to.
	ApplicationID uint64 `json:"application_id"`

	// Name is the human-readable room name.
	Name string `json:"name"`

	// MaxMembers caps how many members may join the room.
	MaxMembers int `json:"max_members"`

	// Flags carries application-defined room flags.
	Flags uint64 `json:"flags"`
}

// RoomListOptions filters a room listing request.
type RoomListOptions struct {
	// ApplicationID restricts the listing to rooms of one application.
	// Zero means all applications.
	ApplicationID uint64 `json:"application_id"`

	// MaximumCount caps the number of rooms returned. Zero means the
	// server default.
	MaximumCount int `json:"maximum_count"`
}

// RoomInfo is the membership snapshot of the room the client is connected
// to. The coordination service pushes a new RoomInfo whenever membership
// changes or a ping is answered.
type RoomInfo struct {
	// RoomID identifies the room.
	RoomID string `json:"room_id"`

	// Members lists the user IDs of all room members, in join order.
	Members []int64 `json:"members"`

	// OwnerIndex is the index into Members of the room owner.
	OwnerIndex int `json:"owner_index"`
}

// RoomCreated confirms a room creation request.
type RoomCreated struct {
	// RoomID is the identifier assigned to the new room.
	RoomID string `json:"room_id"`

	// ConnectionIndex is the creator's member index inside the room.
	ConnectionIndex int `json:"connection_index"`
}

// RoomSummary is one entry of a room listing.
type RoomSummary struct {
	RoomID        string `json:"room_id"`
	Name          string `json:"name"`
	ApplicationID uint64 `json:"application_id"`
	MemberCount   int    `json:"member_count"`
	MaxMembers    int    `json:"max_members"`
}

// RoomList is the response to a room listing request.
type RoomList struct {
	// Rooms holds the matching rooms, at most MaximumCount entries.
	Rooms []RoomSummary `json:"rooms"`
}

// PingRequest reports the client's knowledge value to the coordination
// service. Knowledge is an application-defined monotonic counter (for
// example a simulation tick) the server echoes back to other members.
type PingRequest struct {
	Knowledge uint64 `json:"knowledge"`
}

// JoinRequest asks to join an existing room.
type JoinRequest struct {
	RoomID string `json:"room_id"`
}
