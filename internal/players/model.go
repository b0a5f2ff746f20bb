package players

// Player is one connection's seat in a room. ConnID is the owning
// connection; a player has exactly one at a time.
type Player struct {
	ConnID   string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Score    int    `json:"score"`
}
