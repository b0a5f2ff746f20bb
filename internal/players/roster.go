package players

// Roster is the ordered player list of a room. It has no lock of its own:
// the owning room's mutex serializes every call.
type Roster struct {
	players []*Player
}

func NewRoster() *Roster {
	return &Roster{}
}

func (r *Roster) Add(connID, username string, isAdmin bool) *Player {
	p := &Player{ConnID: connID, Username: username, IsAdmin: isAdmin}
	r.players = append(r.players, p)
	return p
}

// Remove drops the player owning connID and returns it, or nil.
func (r *Roster) Remove(connID string) *Player {
	for i, p := range r.players {
		if p.ConnID == connID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return p
		}
	}
	return nil
}

func (r *Roster) ByConn(connID string) *Player {
	for _, p := range r.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// NameTaken is case-sensitive.
func (r *Roster) NameTaken(username string) bool {
	for _, p := range r.players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// PromoteFirst makes the first remaining player admin. It returns nil when
// the roster is empty.
func (r *Roster) PromoteFirst() *Player {
	if len(r.players) == 0 {
		return nil
	}
	for _, p := range r.players {
		p.IsAdmin = false
	}
	r.players[0].IsAdmin = true
	return r.players[0]
}

func (r *Roster) Admins() int {
	n := 0
	for _, p := range r.players {
		if p.IsAdmin {
			n++
		}
	}
	return n
}

func (r *Roster) Len() int {
	return len(r.players)
}

func (r *Roster) Usernames() []string {
	names := make([]string, len(r.players))
	for i, p := range r.players {
		names[i] = p.Username
	}
	return names
}

// List returns copies so callers can marshal them outside the room lock.
func (r *Roster) List() []Player {
	list := make([]Player, len(r.players))
	for i, p := range r.players {
		list[i] = *p
	}
	return list
}

func (r *Roster) SetScores(totals map[string]int) {
	for _, p := range r.players {
		p.Score = totals[p.Username]
	}
}
