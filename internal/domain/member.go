package domain

// Member is a read-only view of a user present in a room.
// No transport or lifecycle logic here.
type Member struct {
	UserID      UserID `json:"userId"`
	Connections int    `json:"connections"`
}

// RoomInfo mirrors the room listing of the http api.
type RoomInfo struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"memberCount"`
}
