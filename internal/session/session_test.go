package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/realtime"
	"github.com/robalobadob/memory/internal/results"
	"github.com/robalobadob/memory/internal/theme"
)

type fakeRecorder struct {
	mu       sync.Mutex
	started  []results.Round
	finished []results.Finish
}

func (f *fakeRecorder) RoundStarted(r results.Round) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, r)
}

func (f *fakeRecorder) RoundFinished(r results.Finish) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, r)
}

func testCatalog(t *testing.T) *theme.Catalog {
	t.Helper()
	c, err := theme.Parse([]byte("themes:\n  - name: letters\n    labels: [A, B, C, D]\n"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestSession(t *testing.T, cfg game.Config) (*Session, *fakeRecorder, *game.ManualScheduler) {
	t.Helper()
	rec := &fakeRecorder{}
	sched := game.NewManualScheduler()
	s, err := New("s1", Owner{AnonID: "anon"}, cfg, Options{Themes: testCatalog(t), Recorder: rec, Scheduler: sched})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, rec, sched
}

// pairOf finds the partner position of p on the current grid.
func pairOf(s *Session, p int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, v := range s.values {
		if i != p && v == s.values[p] {
			return i
		}
	}
	return -1
}

func TestOwnerAllows(t *testing.T) {
	user := Owner{UserID: "u1"}
	if !user.Allows(Owner{UserID: "u1", AnonID: "x"}) {
		t.Fatal("same user should be allowed")
	}
	if user.Allows(Owner{AnonID: "u1"}) {
		t.Fatal("anon id must not satisfy a user-owned session")
	}
	guest := Owner{AnonID: "a"}
	if !guest.Allows(Owner{AnonID: "a"}) || guest.Allows(Owner{AnonID: "b"}) {
		t.Fatal("guest ownership follows the anon cookie")
	}
	if (Owner{}).Allows(Owner{}) {
		t.Fatal("ownerless session allows nobody")
	}
}

func TestConfigPatchApply(t *testing.T) {
	base := game.Config{Columns: 4, Rows: 4, TimeLimitSeconds: 60, CardWidth: "100px", CardHeight: "100px", Theme: "numbers"}
	got := ConfigPatch{Rows: 2, Theme: "letters"}.Apply(base)
	want := base
	want.Rows = 2
	want.Theme = "letters"
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestNewRejectsUnknownThemeAndBadConfig(t *testing.T) {
	opts := Options{Themes: testCatalog(t)}
	if _, err := New("x", Owner{}, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 5, Theme: "nope"}, opts); !errors.Is(err, theme.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if _, err := New("x", Owner{}, game.Config{Columns: 3, Rows: 3, TimeLimitSeconds: 5}, opts); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLimitsCapBoardAndClock(t *testing.T) {
	opts := Options{Themes: testCatalog(t), Limits: Limits{MaxCards: 16, MaxTimeLimit: 120}, Scheduler: game.NewManualScheduler()}
	if _, err := New("x", Owner{}, game.Config{Columns: 6, Rows: 6, TimeLimitSeconds: 60}, opts); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for 36 cards, got %v", err)
	}
	if _, err := New("x", Owner{}, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 121}, opts); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for 121s, got %v", err)
	}
	s, err := New("x", Owner{}, game.Config{Columns: 4, Rows: 4, TimeLimitSeconds: 120}, opts)
	if err != nil {
		t.Fatalf("board at the limits should be accepted: %v", err)
	}
	if err := s.Restart(&ConfigPatch{Columns: 5}); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("restart over MaxCards should fail, got %v", err)
	}
	if (Limits{}).Check(game.Config{Columns: 50, Rows: 50, TimeLimitSeconds: 1 << 40}) != nil {
		t.Fatal("zero limits are unlimited")
	}
}

func TestViewConcealsHiddenCards(t *testing.T) {
	s, rec, _ := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 10, Theme: "Letters"})

	v := s.View()
	if v.Config.Theme != "letters" {
		t.Fatalf("theme should be normalised, got %q", v.Config.Theme)
	}
	for _, c := range v.Cards {
		if c.Value != 0 || c.Label != "" {
			t.Fatalf("hidden card leaked its face: %+v", c)
		}
	}
	if len(rec.started) != 1 || rec.started[0].ID != results.RoundID("s1", 1) || rec.started[0].AnonymousID != "anon" {
		t.Fatalf("unexpected round start %+v", rec.started)
	}

	s.Select(0)
	v = s.View()
	if v.Cards[0].State != game.CardRevealed || v.Cards[0].Value == 0 || v.Cards[0].Label == "" {
		t.Fatalf("revealed card should show its face: %+v", v.Cards[0])
	}
	if !v.Started || v.Phase != game.PhaseRunning {
		t.Fatalf("first click should start the round: %+v", v)
	}
}

func TestWinIsRecorded(t *testing.T) {
	s, rec, sched := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 10})

	s.Select(0)
	s.Select(pairOf(s, 0))
	sched.Advance(time.Second)
	rest := -1
	for i := range 4 {
		if s.View().Cards[i].State == game.CardHidden {
			rest = i
			break
		}
	}
	s.Select(rest)
	s.Select(pairOf(s, rest))

	if len(rec.finished) != 1 {
		t.Fatalf("expected one finish, got %+v", rec.finished)
	}
	f := rec.finished[0]
	if f.Status != results.StatusWon || f.Moves != 2 || f.Matches != 2 || f.Elapsed != 1 {
		t.Fatalf("unexpected finish %+v", f)
	}
	if f.RoundID != results.RoundID("s1", 1) {
		t.Fatalf("finish should target the started round, got %s", f.RoundID)
	}
}

func TestExpiryIsRecorded(t *testing.T) {
	s, rec, sched := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 2})
	s.Start()
	sched.Advance(2 * time.Second)

	if s.View().Phase != game.PhaseExpired {
		t.Fatal("expected expired round")
	}
	if len(rec.finished) != 1 || rec.finished[0].Status != results.StatusExpired || rec.finished[0].Elapsed != 2 {
		t.Fatalf("unexpected finish %+v", rec.finished)
	}
}

func TestCloseStopsClockAndAbandonsRound(t *testing.T) {
	s, rec, sched := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 3})
	s.Start()
	sched.Advance(time.Second)
	s.Close()

	if sched.Pending() != 0 {
		t.Fatalf("closed session left %d callbacks scheduled", sched.Pending())
	}
	sched.Advance(5 * time.Second)
	if v := s.View(); v.Phase != game.PhaseRunning || v.Remaining != 2 {
		t.Fatalf("closed session kept counting: %+v", v)
	}
	if len(rec.finished) != 1 {
		t.Fatalf("expected one finish, got %+v", rec.finished)
	}
	if f := rec.finished[0]; f.Status != results.StatusAbandoned || f.RoundID != results.RoundID("s1", 1) || f.Elapsed != 1 {
		t.Fatalf("unexpected finish %+v", f)
	}

	s.Close()
	if len(rec.finished) != 1 {
		t.Fatal("second Close must not record again")
	}
}

func TestCloseAfterWinRecordsNothingMore(t *testing.T) {
	s, rec, _ := newTestSession(t, game.Config{Columns: 2, Rows: 1, TimeLimitSeconds: 3})
	s.Select(0)
	s.Select(1)
	s.Close()
	if len(rec.finished) != 1 || rec.finished[0].Status != results.StatusWon {
		t.Fatalf("expected only the win, got %+v", rec.finished)
	}
}

func TestRestartPatchesConfig(t *testing.T) {
	s, rec, _ := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 10})

	if err := s.Restart(&ConfigPatch{Columns: 4, Theme: "letters"}); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	v := s.View()
	if len(v.Cards) != 8 || v.Epoch != 2 || v.Config.Theme != "letters" || v.TimeLimit != 10 {
		t.Fatalf("unexpected view after restart %+v", v)
	}
	if len(rec.started) != 2 {
		t.Fatalf("restart should open a new round, got %d", len(rec.started))
	}

	if err := s.Restart(&ConfigPatch{Theme: "nope"}); !errors.Is(err, theme.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if s.View().Epoch != 2 {
		t.Fatal("failed restart must leave the round alone")
	}
}

func TestApplyCommands(t *testing.T) {
	s, _, _ := newTestSession(t, game.Config{Columns: 2, Rows: 2, TimeLimitSeconds: 10})
	pos, over := 1, false

	if err := s.apply(realtime.Command{Type: "select", Position: &pos}); err != nil {
		t.Fatal(err)
	}
	if s.View().Cards[1].State != game.CardRevealed {
		t.Fatal("select command should reveal the card")
	}
	if err := s.apply(realtime.Command{Type: "pointer", Over: &over}); err != nil {
		t.Fatal(err)
	}
	if !s.View().Paused {
		t.Fatal("pointer over=false should pause")
	}
	if err := s.apply(realtime.Command{Type: "restart", Config: json.RawMessage(`{"rows":1}`)}); err != nil {
		t.Fatal(err)
	}
	if got := len(s.View().Cards); got != 2 {
		t.Fatalf("restart command should apply patch, got %d cards", got)
	}

	for _, cmd := range []realtime.Command{
		{Type: "select"},
		{Type: "pointer"},
		{Type: "restart", Config: json.RawMessage(`{`)},
		{Type: "dance"},
	} {
		if err := s.apply(cmd); !errors.Is(err, ErrBadCommand) {
			t.Errorf("%+v: expected ErrBadCommand, got %v", cmd, err)
		}
	}
}
