// Package session runs the room engine: membership, admin failover, round
// progression, chat notices and the teardown write. Every operation on a
// room runs under that room's lock. The connection index has its own lock,
// which is only ever taken after (never before) a room lock.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"quizroom/internal/chat"
	"quizroom/internal/events"
	"quizroom/internal/messages"
	"quizroom/internal/metrics"
	"quizroom/internal/players"
	"quizroom/internal/rooms"
)

// Notifier delivers outbound events. Implementations must not block.
type Notifier interface {
	Subscribe(connID, room string)
	Unsubscribe(connID, room string)
	Send(connID string, msg events.Outbound)
	Broadcast(room string, msg events.Outbound)
}

// Archive is the durable store for ended rooms. LoadRoom returns nil and no
// error when the room was never archived.
type Archive interface {
	UpsertRoom(ctx context.Context, snap rooms.Snapshot) error
	LoadRoom(ctx context.Context, code string) (*rooms.Snapshot, error)
}

type Config struct {
	MaxPlayers     int
	QuestionTimers bool
	TimerGrace     time.Duration
	PersistTimeout time.Duration
}

type Manager struct {
	store   *rooms.Store
	notify  Notifier
	archive Archive
	cfg     Config

	mu    sync.Mutex
	conns map[string]string
}

// NewManager wires the engine. archive may be nil, in which case ended rooms
// are discarded.
func NewManager(store *rooms.Store, notify Notifier, archive Archive, cfg Config) *Manager {
	return &Manager{
		store:   store,
		notify:  notify,
		archive: archive,
		cfg:     cfg,
		conns:   make(map[string]string),
	}
}

// RoomOf returns the code of the room connID is seated in, or "".
func (m *Manager) RoomOf(connID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[connID]
}

func (m *Manager) bind(connID, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[connID] = code
}

func (m *Manager) unbind(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

// CreateRoom opens a room with the caller as its admin and returns the code.
func (m *Manager) CreateRoom(connID, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrNameRequired
	}
	if m.RoomOf(connID) != "" {
		return "", ErrAlreadyInRoom
	}

	room, err := m.store.Create()
	if err != nil {
		return "", fmt.Errorf("creating room: %w", err)
	}

	room.Lock()
	defer room.Unlock()

	room.Players.Add(connID, username, true)
	m.bind(connID, room.Code)
	m.notify.Subscribe(connID, room.Code)
	metrics.RoomsActive.Inc()
	metrics.PlayersConnected.Inc()

	m.notify.Send(connID, events.RoomEntered(true, room.Code))
	m.announce(room, chat.LevelSuccess, messages.CreatedGame, messages.Vars{"username": username})
	m.broadcastRoster(room)

	log.Printf("[Session] %s created room %s\n", username, room.Code)
	return room.Code, nil
}

// JoinRoom seats the caller as a regular player. Checks run in a fixed
// order and the first failing one is returned.
func (m *Manager) JoinRoom(connID, code, username string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrRoomCodeRequired
	}
	room := m.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	// An empty room is either being torn down or not yet handed to its creator.
	if room.Closed() || room.Players.Len() == 0 {
		return ErrRoomNotFound
	}
	if m.cfg.MaxPlayers > 0 && room.Players.Len() >= m.cfg.MaxPlayers {
		return ErrRoomFull
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrNameRequired
	}
	if room.Players.NameTaken(username) {
		return ErrNameTaken
	}
	if room.Game.Live() != nil {
		return ErrGameInProgress
	}
	if m.RoomOf(connID) != "" {
		return ErrAlreadyInRoom
	}

	room.Players.Add(connID, username, false)
	m.bind(connID, room.Code)
	m.notify.Subscribe(connID, room.Code)
	metrics.PlayersConnected.Inc()

	m.notify.Send(connID, events.RoomEntered(false, room.Code))
	m.announce(room, chat.LevelInfo, messages.EnteredGame, messages.Vars{"username": username})
	m.broadcastRoster(room)

	log.Printf("[Session] %s joined room %s\n", username, room.Code)
	return nil
}

// Disconnect removes the caller from its room. It is safe to call for a
// connection that is in no room, and more than once.
func (m *Manager) Disconnect(connID string) {
	code := m.RoomOf(connID)
	if code == "" {
		return
	}
	room := m.store.Get(code)
	if room == nil {
		m.unbind(connID)
		return
	}

	room.Lock()
	defer room.Unlock()

	m.unbind(connID)
	m.notify.Unsubscribe(connID, code)
	if room.Closed() {
		return
	}
	left := room.Players.Remove(connID)
	if left == nil {
		return
	}
	metrics.PlayersConnected.Dec()
	log.Printf("[Session] %s left room %s\n", left.Username, code)

	if room.Players.Len() == 0 {
		m.teardown(room)
		return
	}

	m.announce(room, chat.LevelWarning, messages.LeftGame, messages.Vars{"username": left.Username})
	if left.IsAdmin {
		if admin := room.Players.PromoteFirst(); admin != nil {
			m.announce(room, chat.LevelInfo, messages.PromotedAdmin, messages.Vars{"username": admin.Username})
			m.notify.Broadcast(code, events.NewAdmin(*admin))
		}
	}
	m.broadcastRoster(room)

	// Roster first, then the answered set, then the barrier check.
	room.Game.Forget(left.Username)
	m.advance(room)
}

// SendMessage appends a user message to the transcript. Messages over the
// length cap are dropped without error.
func (m *Manager) SendMessage(connID, code, message string) error {
	room, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	p, err := seated(room, connID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	if _, ok := room.Chat.AppendUser(p.Username, message); !ok {
		return nil
	}
	m.notify.Broadcast(room.Code, events.ChatUpdate(room.Chat.Entries()))
	return nil
}

// PlayersInRoom sends the roster to the caller only.
func (m *Manager) PlayersInRoom(connID, code string) error {
	room, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	list := room.Players.List()
	room.Unlock()

	m.notify.Send(connID, events.PlayersInRoom(m.cfg.MaxPlayers, list))
	return nil
}

// Shutdown tears down every room still in memory, persisting each one.
func (m *Manager) Shutdown() {
	for _, room := range m.store.List() {
		room.Lock()
		if !room.Closed() {
			m.teardown(room)
		}
		room.Unlock()
	}
}

// lockRoom returns the live room for code, locked.
func (m *Manager) lockRoom(code string) (*rooms.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrRoomCodeRequired
	}
	room := m.store.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.Lock()
	if room.Closed() {
		room.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// teardown classifies, unregisters and persists a room, releasing any
// players still seated in it. Called with the room locked.
func (m *Manager) teardown(room *rooms.Room) {
	status := room.Close(time.Now())
	snap := room.Snapshot()
	m.store.Delete(room.Code)
	metrics.RoomsActive.Dec()

	// Only a shutdown leaves players seated here.
	for _, p := range snap.Players {
		m.unbind(p.ConnID)
		m.notify.Unsubscribe(p.ConnID, room.Code)
	}
	metrics.PlayersConnected.Sub(float64(len(snap.Players)))
	log.Printf("[Session] Room %s ended as %s after %d round(s)\n", room.Code, status, len(snap.Rounds))

	m.persist(snap)
}

// persist is best-effort: a failed write is logged and reported to the room
// but never retried.
func (m *Manager) persist(snap rooms.Snapshot) {
	if m.archive == nil {
		metrics.RoomsPersisted.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := m.persistContext()
	defer cancel()

	if err := m.archive.UpsertRoom(ctx, snap); err != nil {
		log.Printf("[Session] Data loss: room %s was not persisted: %v\n", snap.RoomID, err)
		metrics.RoomsPersisted.WithLabelValues("error").Inc()
		m.notify.Broadcast(snap.RoomID, events.RoomError(messages.Localize(messages.PersistFailed, nil)))
		return
	}
	metrics.RoomsPersisted.WithLabelValues("ok").Inc()
}

func (m *Manager) persistContext() (context.Context, context.CancelFunc) {
	if m.cfg.PersistTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
}

// announce appends a system line and broadcasts it with the full transcript.
// Called with the room locked so members never see a partial transcript.
func (m *Manager) announce(room *rooms.Room, level chat.Level, key messages.Key, vars messages.Vars) {
	localized := messages.Localize(key, vars)
	room.Chat.AppendSystem(localized)
	m.notify.Broadcast(room.Code, events.RoomMessage(level, localized))
	m.notify.Broadcast(room.Code, events.ChatUpdate(room.Chat.Entries()))
}

func (m *Manager) broadcastRoster(room *rooms.Room) {
	m.notify.Broadcast(room.Code, events.PlayersInRoom(m.cfg.MaxPlayers, room.Players.List()))
}

// seated returns the caller's player record in a locked room.
func seated(room *rooms.Room, connID string) (*players.Player, error) {
	p := room.Players.ByConn(connID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	return p, nil
}
