package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"quizroom/internal/chat"
	"quizroom/internal/events"
	"quizroom/internal/game"
	"quizroom/internal/metrics"
	"quizroom/internal/players"
	"quizroom/internal/rooms"
)

// recorder is a Notifier that keeps every frame each connection would
// have received.
type recorder struct {
	mu     sync.Mutex
	groups map[string]map[string]bool
	inbox  map[string][]events.Outbound
}

func newRecorder() *recorder {
	return &recorder{
		groups: make(map[string]map[string]bool),
		inbox:  make(map[string][]events.Outbound),
	}
}

func (r *recorder) Subscribe(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[room] == nil {
		r.groups[room] = make(map[string]bool)
	}
	r.groups[room][connID] = true
}

func (r *recorder) Unsubscribe(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[room], connID)
}

func (r *recorder) Send(connID string, msg events.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbox[connID] = append(r.inbox[connID], msg)
}

func (r *recorder) Broadcast(room string, msg events.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.groups[room] {
		r.inbox[id] = append(r.inbox[id], msg)
	}
}

func (r *recorder) count(connID, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msg := range r.inbox[connID] {
		if msg.Name == name {
			n++
		}
	}
	return n
}

func (r *recorder) last(connID, name string) (events.Outbound, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.inbox[connID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Name == name {
			return msgs[i], true
		}
	}
	return events.Outbound{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbox = make(map[string][]events.Outbound)
}

// fakeArchive stores snapshots as JSON, like the real store does.
type fakeArchive struct {
	mu    sync.Mutex
	err   error
	saved map[string][]byte
	calls int
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{saved: make(map[string][]byte)}
}

func (a *fakeArchive) UpsertRoom(_ context.Context, snap rooms.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return a.err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	a.saved[snap.RoomID] = data
	return nil
}

func (a *fakeArchive) LoadRoom(_ context.Context, code string) (*rooms.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.saved[code]
	if !ok {
		return nil, nil
	}
	var snap rooms.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *fakeArchive) load(t *testing.T, code string) rooms.Snapshot {
	t.Helper()
	snap, err := a.LoadRoom(context.Background(), code)
	if err != nil || snap == nil {
		t.Fatalf("room %s was not archived (err %v)", code, err)
	}
	return *snap
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *recorder, *fakeArchive) {
	t.Helper()
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = 10
	}
	rec := newRecorder()
	arch := newFakeArchive()
	return NewManager(rooms.NewStore(rooms.DefaultCodeLength, 20), rec, arch, cfg), rec, arch
}

func quiz(t *testing.T, n int) game.QuizParams {
	t.Helper()
	var qs []game.Question
	err := json.Unmarshal([]byte(`[
		{"question":"Capital of France?","answers":["Paris","Lyon"],"correctAnswer":"Paris"},
		{"question":"2+2?","answers":["3","4"],"correctAnswer":"4"},
		{"question":"Red planet?","answers":["Mars","Venus"],"correctAnswer":"Mars"}
	]`), &qs)
	if err != nil {
		t.Fatal(err)
	}
	return game.QuizParams{
		NbQuestions: n,
		Categories:  game.Categories{"9"},
		Timer:       20,
		Questions:   qs[:n],
		Language:    "en",
	}
}

func str(s string) *string { return &s }

func inspect(t *testing.T, m *Manager, code string, fn func(r *rooms.Room)) {
	t.Helper()
	room := m.store.Get(code)
	if room == nil {
		t.Fatalf("room %s is not in the store", code)
	}
	room.Lock()
	defer room.Unlock()
	fn(room)
}

// seat creates a room for the first name and joins the others, using the
// names as connection ids.
func seat(t *testing.T, m *Manager, names ...string) string {
	t.Helper()
	code, err := m.CreateRoom(names[0], names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names[1:] {
		if err := m.JoinRoom(name, code, name); err != nil {
			t.Fatalf("JoinRoom(%s): %v", name, err)
		}
	}
	return code
}

func TestCreateRoom_CreatorIsAdmin(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})

	code, err := m.CreateRoom("c1", "  Alice ")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != rooms.DefaultCodeLength {
		t.Errorf("code %q should have length %d", code, rooms.DefaultCodeLength)
	}

	inspect(t, m, code, func(r *rooms.Room) {
		list := r.Players.List()
		if len(list) != 1 || list[0].Username != "Alice" || !list[0].IsAdmin {
			t.Errorf("players = %+v, want a single admin Alice", list)
		}
		if r.Chat.Len() != 1 {
			t.Errorf("chat has %d entries, want 1", r.Chat.Len())
		}
	})

	ack, ok := rec.last("c1", events.NameRoomEntered)
	if !ok {
		t.Fatal("creator should receive roomEntered")
	}
	if p := ack.Data.(events.RoomEnteredPayload); !p.IsAdmin || p.RoomID != code {
		t.Errorf("roomEntered = %+v", p)
	}
	if rec.count("c1", events.NameRoomMessageSuccess) != 1 {
		t.Error("creator should see the created-game notice")
	}
	if m.RoomOf("c1") != code {
		t.Errorf("RoomOf(c1) = %q, want %q", m.RoomOf("c1"), code)
	}
}

func TestCreateRoom_Errors(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})

	if _, err := m.CreateRoom("c1", "   "); !errors.Is(err, ErrNameRequired) {
		t.Errorf("CreateRoom(blank) error = %v, want ErrNameRequired", err)
	}
	if m.store.Len() != 0 {
		t.Error("a rejected create must not register a room")
	}

	seat(t, m, "c1")
	if _, err := m.CreateRoom("c1", "Again"); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("second CreateRoom error = %v, want ErrAlreadyInRoom", err)
	}
}

func TestJoinRoom_NameTaken(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	rec.reset()

	if err := m.JoinRoom("c2", code, "Alice"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("JoinRoom error = %v, want ErrNameTaken", err)
	}

	inspect(t, m, code, func(r *rooms.Room) {
		list := r.Players.List()
		if len(list) != 1 || list[0].ConnID != "Alice" || !list[0].IsAdmin {
			t.Errorf("original membership changed: %+v", list)
		}
	})
	if m.RoomOf("c2") != "" {
		t.Error("rejected connection should not be indexed")
	}
	if rec.count("Alice", events.NamePlayersInRoom) != 0 {
		t.Error("a rejected join must not broadcast anything")
	}
}

func TestJoinRoom_ValidationOrder(t *testing.T) {
	m, _, _ := newTestManager(t, Config{MaxPlayers: 2})
	code := seat(t, m, "Alice")

	cases := []struct {
		code, name string
		want       error
	}{
		{"", "", ErrRoomCodeRequired},
		{"NOPE", "", ErrRoomNotFound},
		{code, "", ErrNameRequired},
		{code, "Alice", ErrNameTaken},
	}
	for _, c := range cases {
		if err := m.JoinRoom("x", c.code, c.name); !errors.Is(err, c.want) {
			t.Errorf("JoinRoom(%q, %q) error = %v, want %v", c.code, c.name, err, c.want)
		}
	}

	if err := m.JoinRoom("Bob", code, "Bob"); err != nil {
		t.Fatal(err)
	}
	// Full is reported before the missing name.
	if err := m.JoinRoom("x", code, ""); !errors.Is(err, ErrRoomFull) {
		t.Errorf("JoinRoom(full) error = %v, want ErrRoomFull", err)
	}
}

func TestJoinRoom_GameInProgress(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	if err := m.StartQuiz("Alice", code, quiz(t, 1)); err != nil {
		t.Fatal(err)
	}

	if err := m.JoinRoom("Bob", code, "Bob"); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("late join error = %v, want ErrGameInProgress", err)
	}
}

func TestJoinRoom_BroadcastsRoster(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	rec.reset()

	if err := m.JoinRoom("Bob", code, "Bob"); err != nil {
		t.Fatal(err)
	}

	ack, _ := rec.last("Bob", events.NameRoomEntered)
	if ack.Data.(events.RoomEnteredPayload).IsAdmin {
		t.Error("joiner should not be admin")
	}
	if rec.count("Alice", events.NameRoomEntered) != 0 {
		t.Error("roomEntered is for the joiner only")
	}
	roster, ok := rec.last("Alice", events.NamePlayersInRoom)
	if !ok {
		t.Fatal("members should receive the refreshed roster")
	}
	payload := roster.Data.(events.PlayersInRoomPayload)
	if payload.MaxPlayer != 10 || len(payload.Players) != 2 {
		t.Errorf("playersInRoom = %+v", payload)
	}
	if rec.count("Alice", events.NameChatUpdate) == 0 {
		t.Error("members should receive the transcript")
	}
}

func TestDisconnect_AdminFailover(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob", "Carol")
	rec.reset()

	m.Disconnect("Alice")

	inspect(t, m, code, func(r *rooms.Room) {
		if r.Players.Admins() != 1 {
			t.Fatalf("room has %d admins, want 1", r.Players.Admins())
		}
		if admin := r.Players.List()[0]; admin.Username != "Bob" || !admin.IsAdmin {
			t.Errorf("first player = %+v, want admin Bob", admin)
		}
	})
	msg, ok := rec.last("Carol", events.NameNewAdmin)
	if !ok {
		t.Fatal("members should be told about the new admin")
	}
	if admin := msg.Data.(players.Player); admin.Username != "Bob" || !admin.IsAdmin {
		t.Errorf("newAdmin = %+v, want Bob", admin)
	}
}

func TestDisconnect_NonAdminKeepsAdmin(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	rec.reset()

	m.Disconnect("Bob")
	m.Disconnect("Bob")

	inspect(t, m, code, func(r *rooms.Room) {
		if r.Players.Len() != 1 || r.Players.Admins() != 1 {
			t.Errorf("players = %+v", r.Players.List())
		}
	})
	if rec.count("Alice", events.NameNewAdmin) != 0 {
		t.Error("no promotion expected when a regular player leaves")
	}
	if rec.count("Alice", events.NameRoomMessageWarning) != 1 {
		t.Error("members should see exactly one left-game notice")
	}
}

func TestDisconnectDuringRound_ReleasesBarrier(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	if err := m.StartQuiz("Alice", code, quiz(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitAnswer("Alice", code, str("X")); err != nil {
		t.Fatal(err)
	}
	inspect(t, m, code, func(r *rooms.Room) {
		if r.Game.Status != game.StatusOutgoing {
			t.Fatalf("round should wait for Bob, status = %q", r.Game.Status)
		}
	})

	m.Disconnect("Bob")

	inspect(t, m, code, func(r *rooms.Room) {
		if r.Game.Status != game.StatusWaiting {
			t.Errorf("Status = %q, want %q", r.Game.Status, game.StatusWaiting)
		}
		if !r.Game.Rounds[0].Ended {
			t.Error("round should be ended")
		}
	})
	if rec.count("Alice", events.NameQuizEnded) != 1 {
		t.Errorf("Alice received %d quizEnded, want 1", rec.count("Alice", events.NameQuizEnded))
	}
}

func TestSubmitAnswer_Progression(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	if err := m.StartQuiz("Alice", code, quiz(t, 2)); err != nil {
		t.Fatal(err)
	}
	if rec.count("Bob", events.NameQuizStarted) != 1 || rec.count("Bob", events.NameNewQuestion) != 1 {
		t.Fatal("members should receive quizStarted and the first question")
	}

	if err := m.SubmitAnswer("Alice", code, str("Paris")); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitAnswer("Alice", code, str("Lyon")); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("duplicate answer error = %v, want ErrAlreadyAnswered", err)
	}
	if rec.count("Alice", events.NamePlayerAlreadyAnswered) != 1 {
		t.Error("submitter should be acknowledged once")
	}
	if rec.count("Bob", events.NamePlayerAlreadyAnswered) != 0 {
		t.Error("the acknowledgment is for the submitter only")
	}

	if err := m.SubmitAnswer("Bob", code, nil); err != nil {
		t.Fatal(err)
	}
	inspect(t, m, code, func(r *rooms.Room) {
		round := r.Game.Live()
		if round == nil || round.CurrentQuestion != 1 || len(round.Answered) != 0 {
			t.Fatalf("round should sit on question 2 with no answers, got %+v", round)
		}
	})
	q, _ := rec.last("Bob", events.NameNewQuestion)
	if idx := q.Data.(events.NewQuestionPayload).CurrentQuestionIndex; idx != 1 {
		t.Errorf("currentQuestionIndex = %d, want 1", idx)
	}

	m.SubmitAnswer("Alice", code, str("4"))
	m.SubmitAnswer("Bob", code, str("4"))

	inspect(t, m, code, func(r *rooms.Room) {
		if r.Game.Status != game.StatusWaiting {
			t.Errorf("Status = %q, want %q", r.Game.Status, game.StatusWaiting)
		}
		for _, p := range r.Players.List() {
			want := map[string]int{"Alice": 2, "Bob": 1}[p.Username]
			if p.Score != want {
				t.Errorf("%s score = %d, want %d", p.Username, p.Score, want)
			}
		}
	})
	if rec.count("Bob", events.NameQuizEnded) != 1 || rec.count("Bob", events.NameNewQuestion) != 2 {
		t.Error("a finished round ends with quizEnded and no further question")
	}

	if err := m.SubmitAnswer("Bob", code, str("late")); !errors.Is(err, ErrNoRoundInProgress) {
		t.Errorf("answer after the round error = %v, want ErrNoRoundInProgress", err)
	}
}

func TestSubmitAnswer_NotInRoom(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	m.StartQuiz("Alice", code, quiz(t, 1))

	if err := m.SubmitAnswer("intruder", code, str("Paris")); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("error = %v, want ErrNotInRoom", err)
	}
	if err := m.SubmitAnswer("Alice", "NOPE", str("Paris")); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("error = %v, want ErrRoomNotFound", err)
	}
}

func TestStartQuiz_MissingParams(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	rec.reset()

	err := m.StartQuiz("Alice", code, game.QuizParams{Timer: 10})
	if !errors.Is(err, ErrMissingQuizParams) {
		t.Fatalf("error = %v, want ErrMissingQuizParams", err)
	}
	var serr *Error
	errors.As(err, &serr)
	want := []string{"choosenNbQuestions", "choosenCategory", "questions", "quizLanguage"}
	if !reflect.DeepEqual(serr.Fields, want) {
		t.Errorf("Fields = %v, want %v", serr.Fields, want)
	}
	if msg := Describe(err)["en"]; !strings.Contains(msg, "choosenCategory") {
		t.Errorf("Describe() = %q, should name the missing fields", msg)
	}

	inspect(t, m, code, func(r *rooms.Room) {
		if r.Game.Status != game.StatusWaiting || len(r.Game.Rounds) != 0 || r.Game.CurrentRound != nil {
			t.Error("a rejected start must not touch the round state")
		}
	})
	if rec.count("Alice", events.NameQuizStarted) != 0 {
		t.Error("a rejected start must not broadcast")
	}
}

func TestStartQuiz_WhileRoundLive(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	m.StartQuiz("Alice", code, quiz(t, 2))

	if err := m.StartQuiz("Alice", code, quiz(t, 1)); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("error = %v, want ErrGameInProgress", err)
	}
}

func TestSecondRound_CumulativeScore(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice")

	for round := 0; round < 2; round++ {
		if err := m.StartQuiz("Alice", code, quiz(t, 1)); err != nil {
			t.Fatal(err)
		}
		m.SubmitAnswer("Alice", code, str("Paris"))
	}

	inspect(t, m, code, func(r *rooms.Room) {
		if len(r.Game.Rounds) != 2 || *r.Game.CurrentRound != 1 {
			t.Errorf("rounds = %d, current = %d", len(r.Game.Rounds), *r.Game.CurrentRound)
		}
		if score := r.Players.List()[0].Score; score != 2 {
			t.Errorf("score = %d, want 2", score)
		}
	})
}

func TestTeardown_PersistsOnceCompleted(t *testing.T) {
	m, _, arch := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob", "Carol")
	m.StartQuiz("Alice", code, quiz(t, 1))
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		m.SubmitAnswer(name, code, str("Paris"))
	}

	m.Disconnect("Alice")
	m.Disconnect("Bob")
	if arch.calls != 0 {
		t.Fatal("nothing should be persisted while players remain")
	}
	m.Disconnect("Carol")

	if arch.calls != 1 {
		t.Fatalf("persisted %d times, want exactly 1", arch.calls)
	}
	snap := arch.load(t, code)
	if snap.Status != game.StatusCompleted {
		t.Errorf("Status = %q, want %q", snap.Status, game.StatusCompleted)
	}
	if snap.EndedAt == nil {
		t.Error("archived room should carry an end timestamp")
	}
	if len(snap.FinalScores) != 3 {
		t.Errorf("FinalScores = %+v", snap.FinalScores)
	}
	if m.store.Get(code) != nil {
		t.Error("room should be removed from the store")
	}
	if m.RoomOf("Carol") != "" {
		t.Error("departed connections should be unindexed")
	}
}

func TestTeardown_MidRoundUnfinished(t *testing.T) {
	m, _, arch := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob", "Carol")
	m.StartQuiz("Alice", code, quiz(t, 2))

	m.Disconnect("Carol")
	m.Disconnect("Bob")
	m.Disconnect("Alice")

	if arch.calls != 1 {
		t.Fatalf("persisted %d times, want exactly 1", arch.calls)
	}
	if snap := arch.load(t, code); snap.Status != game.StatusUnfinished {
		t.Errorf("Status = %q, want %q", snap.Status, game.StatusUnfinished)
	}
}

func TestTeardown_NoRoundsUnfinished(t *testing.T) {
	m, _, arch := newTestManager(t, Config{})
	code := seat(t, m, "Alice")
	m.Disconnect("Alice")

	if snap := arch.load(t, code); snap.Status != game.StatusUnfinished {
		t.Errorf("Status = %q, want %q", snap.Status, game.StatusUnfinished)
	}
}

func TestTeardown_PersistFailureStillRemoves(t *testing.T) {
	m, _, arch := newTestManager(t, Config{})
	arch.err = errors.New("connection refused")
	code := seat(t, m, "Alice")

	m.Disconnect("Alice")

	if arch.calls != 1 {
		t.Errorf("persisted %d times, want 1 attempt and no retry", arch.calls)
	}
	if m.store.Get(code) != nil {
		t.Error("a failed write must not keep the room alive")
	}
	if err := m.JoinRoom("Bob", code, "Bob"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("join after teardown error = %v, want ErrRoomNotFound", err)
	}
}

func TestSendMessage(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	rec.reset()

	if err := m.SendMessage("Alice", code, "  hello  "); err != nil {
		t.Fatal(err)
	}
	update, ok := rec.last("Bob", events.NameChatUpdate)
	if !ok {
		t.Fatal("members should receive the transcript")
	}
	history := update.Data.([]chat.Entry)
	if got := history[len(history)-1].Text; got != "Alice: hello" {
		t.Errorf("last entry = %q, want %q", got, "Alice: hello")
	}

	if err := m.SendMessage("Alice", code, strings.Repeat("x", 21)); err != nil {
		t.Errorf("over-limit message error = %v, want silent drop", err)
	}
	if rec.count("Bob", events.NameChatUpdate) != 1 {
		t.Error("a dropped message must not broadcast")
	}

	if err := m.SendMessage("Alice", code, " "); !errors.Is(err, ErrMessageRequired) {
		t.Errorf("blank message error = %v, want ErrMessageRequired", err)
	}
	if err := m.SendMessage("stranger", code, "hi"); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("non-member error = %v, want ErrNotInRoom", err)
	}
}

func TestPlayersInRoom_RequesterOnly(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	rec.reset()

	if err := m.PlayersInRoom("Bob", code); err != nil {
		t.Fatal(err)
	}
	if rec.count("Bob", events.NamePlayersInRoom) != 1 || rec.count("Alice", events.NamePlayersInRoom) != 0 {
		t.Error("roster query should answer the requester only")
	}
}

func TestResults_IdempotentAndArchived(t *testing.T) {
	m, rec, _ := newTestManager(t, Config{})
	code := seat(t, m, "Alice", "Bob")
	m.StartQuiz("Alice", code, quiz(t, 2))
	m.SubmitAnswer("Alice", code, str("Paris"))
	m.SubmitAnswer("Bob", code, str("Lyon"))
	m.SubmitAnswer("Alice", code, nil)
	m.SubmitAnswer("Bob", code, str("4"))

	results := func(conn string) []byte {
		t.Helper()
		if err := m.Results(conn, code); err != nil {
			t.Fatal(err)
		}
		msg, _ := rec.last(conn, events.NameResultsInRoom)
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := results("Alice")
	second := results("Alice")
	if string(first) != string(second) {
		t.Errorf("results changed between calls:\n%s\n%s", first, second)
	}
	if !strings.Contains(string(first), `"allPlayersFinalResult":[{"username":"Alice","finalScore":1},{"username":"Bob","finalScore":1}]`) {
		t.Errorf("results = %s", first)
	}

	m.Disconnect("Alice")
	m.Disconnect("Bob")

	archived := results("spectator")
	if !strings.Contains(string(archived), `"allPlayersFinalResult":[{"username":"Alice","finalScore":1},{"username":"Bob","finalScore":1}]`) {
		t.Errorf("archived results = %s", archived)
	}

	if err := m.Results("spectator", "NEVER"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown room error = %v, want ErrRoomNotFound", err)
	}
}

func TestQuestionTimer_FillsMissingAnswers(t *testing.T) {
	// A one second timer with a negative grace fires after 100ms.
	m, rec, _ := newTestManager(t, Config{QuestionTimers: true, TimerGrace: -900 * time.Millisecond})
	code := seat(t, m, "Alice", "Bob")
	params := quiz(t, 2)
	params.Timer = 1
	if err := m.StartQuiz("Alice", code, params); err != nil {
		t.Fatal(err)
	}
	m.SubmitAnswer("Alice", code, str("Paris"))

	deadline := time.Now().Add(3 * time.Second)
	for rec.count("Alice", events.NameQuizEnded) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out questions never ended the round")
		}
		time.Sleep(5 * time.Millisecond)
	}

	inspect(t, m, code, func(r *rooms.Room) {
		round := r.Game.Rounds[0]
		alice := round.AnswersOf("Alice")
		bob := round.AnswersOf("Bob")
		if len(alice) != 2 || alice[0] == nil || *alice[0] != "Paris" || alice[1] != nil {
			t.Errorf("Alice answers = %v", alice)
		}
		if len(bob) != 2 || bob[0] != nil || bob[1] != nil {
			t.Errorf("Bob answers = %v", bob)
		}
		if r.QuestionTimer != nil {
			t.Error("timer should be cleared once the round ends")
		}
	})
	if n := rec.count("Alice", events.NameQuizEnded); n != 1 {
		t.Errorf("quizEnded sent %d times, want 1", n)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var out dto.Metric
	if err := g.Write(&out); err != nil {
		t.Fatal(err)
	}
	return out.GetGauge().GetValue()
}

func TestShutdown_PersistsEveryRoom(t *testing.T) {
	m, rec, arch := newTestManager(t, Config{})
	connected := gaugeValue(t, metrics.PlayersConnected)
	a := seat(t, m, "Alice", "Carol")
	b := seat(t, m, "Bob")

	m.Shutdown()

	if got := gaugeValue(t, metrics.PlayersConnected); got != connected {
		t.Errorf("players_connected = %v after shutdown, want %v", got, connected)
	}
	for _, id := range []string{"Alice", "Carol", "Bob"} {
		if code := m.RoomOf(id); code != "" {
			t.Errorf("RoomOf(%s) = %q after shutdown, want none", id, code)
		}
	}
	rec.mu.Lock()
	if len(rec.groups[a]) != 0 || len(rec.groups[b]) != 0 {
		t.Errorf("room groups still subscribed: %v", rec.groups)
	}
	rec.mu.Unlock()

	// The connections closing afterwards are no-ops.
	m.Disconnect("Alice")
	if got := gaugeValue(t, metrics.PlayersConnected); got != connected {
		t.Errorf("players_connected = %v after late disconnect, want %v", got, connected)
	}

	if arch.calls != 2 {
		t.Errorf("persisted %d rooms, want 2", arch.calls)
	}
	arch.load(t, a)
	arch.load(t, b)
	if m.store.Len() != 0 {
		t.Error("store should be empty after shutdown")
	}
}

// checkRoom verifies what must hold between any two operations on a room.
func checkRoom(t *testing.T, m *Manager, code string) {
	room := m.store.Get(code)
	if room == nil {
		return
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return
	}
	if live := room.Game.Live(); live != nil && len(live.Answered) > room.Players.Len() {
		t.Errorf("answered %v exceeds %d seated players", live.Answered, room.Players.Len())
	}
	if room.Players.Len() > 0 && room.Players.Admins() != 1 {
		t.Errorf("room has %d admins, want 1", room.Players.Admins())
	}
	if (room.Game.CurrentRound == nil) != (len(room.Game.Rounds) == 0) {
		t.Errorf("CurrentRound = %v with %d rounds", room.Game.CurrentRound, len(room.Game.Rounds))
	}
}

func TestConcurrentRoomEvents(t *testing.T) {
	names := []string{"p0", "p1", "p2", "p3", "p4"}

	for iter := 0; iter < 20; iter++ {
		// A one second timer with this grace fires almost at once, so
		// deadlines race the answers and departures.
		m, _, arch := newTestManager(t, Config{QuestionTimers: true, TimerGrace: -999 * time.Millisecond})
		code := seat(t, m, names...)
		params := quiz(t, 3)
		params.Timer = 1
		if err := m.StartQuiz("p0", code, params); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				for q := 0; q < 3; q++ {
					m.SubmitAnswer(name, code, str("Paris"))
					m.Results(name, code)
					checkRoom(t, m, code)
				}
				if i%2 == 0 {
					m.Disconnect(name)
				}
			}(i, name)
		}
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				default:
					checkRoom(t, m, code)
				}
			}
		}()
		wg.Wait()
		close(done)

		for _, name := range names {
			m.Disconnect(name)
		}
		if m.store.Get(code) != nil {
			t.Fatalf("iteration %d: room still registered after everyone left", iter)
		}
		arch.mu.Lock()
		calls := arch.calls
		arch.mu.Unlock()
		if calls != 1 {
			t.Fatalf("iteration %d: room persisted %d times, want 1", iter, calls)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(ErrNameTaken)["en"]; got != "This username is already taken in this room" {
		t.Errorf("Describe(ErrNameTaken) = %q", got)
	}
	if got := Describe(events.ErrUnknown)["fr"]; got != "Requête inconnue" {
		t.Errorf("Describe(ErrUnknown) = %q", got)
	}
	if got := Describe(errors.New("boom"))["en"]; got == "" || got == "internal" {
		t.Errorf("Describe(other) = %q", got)
	}
}
