package types

// RoomSummary is one entry of the room directory.
type RoomSummary struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Status  string `json:"status"`
}
