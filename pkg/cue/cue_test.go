package cue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-cuecam/internal/log"
	"github.com/teslashibe/go-cuecam/pkg/session"
)

func newTestArbitrator(t *testing.T, player Player, opts ...ArbitratorOption) (*Arbitrator, *Rotation) {
	t.Helper()
	rot := NewRotation(session.NewMemory(), log.Discard())
	opts = append([]ArbitratorOption{WithLogger(log.Discard())}, opts...)
	a := NewArbitrator(player, rot, "media", ".mp3", opts...)
	t.Cleanup(func() { a.Close() })
	return a, rot
}

func trigger(t *testing.T, a *Arbitrator, label string) {
	t.Helper()
	if !a.Trigger(label) {
		t.Fatalf("Trigger(%q) dropped", label)
	}
	a.Wait()
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMediaPath(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{1, filepath.Join("media", "cow1.mp3")},
		{12, filepath.Join("media", "cow12.mp3")},
		{0, filepath.Join("media", "cow.mp3")},
		{-1, filepath.Join("media", "cow.mp3")},
	}
	for _, tc := range tests {
		if got := MediaPath("media", "cow", tc.index, ".mp3"); got != tc.want {
			t.Errorf("MediaPath(%d) = %s, want %s", tc.index, got, tc.want)
		}
	}
}

func TestRotationGet(t *testing.T) {
	store := session.NewMemory()
	rot := NewRotation(store, log.Discard())

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"absent", "", 1},
		{"stored", "3", 3},
		{"garbage", "abc", 1},
		{"zero", "0", 1},
		{"negative", "-4", 1},
		{"padded", " 5 ", 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			label := "l_" + tc.name
			if tc.raw != "" {
				store.Set(RotationKey(label), tc.raw)
			}
			if got := rot.Get(label); got != tc.want {
				t.Errorf("Get = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRotationRoundTrip(t *testing.T) {
	player := NewMockPlayer("cow.mp3")
	a, rot := newTestArbitrator(t, player)

	// Unseen label: cow1 missing, falls to cow.
	trigger(t, a, "cow")
	if got := player.Starts(); !equal(got, []string{"cow1.mp3", "cow.mp3"}) {
		t.Fatalf("first trigger starts = %v", got)
	}
	if got := rot.Get("cow"); got != 2 {
		t.Fatalf("rotation after first trigger = %d, want 2", got)
	}

	// cow2 missing: reset to 1, retry cow1, then cow.
	trigger(t, a, "cow")
	want := []string{"cow1.mp3", "cow.mp3", "cow2.mp3", "cow1.mp3", "cow.mp3"}
	if got := player.Starts(); !equal(got, want) {
		t.Fatalf("second trigger starts = %v, want %v", got, want)
	}
	if got := rot.Get("cow"); got != 2 {
		t.Errorf("rotation after reset = %d, want 2", got)
	}
}

func TestRotationAdvancesThroughFiles(t *testing.T) {
	player := NewMockPlayer("cat1.mp3", "cat2.mp3", "cat3.mp3")
	a, rot := newTestArbitrator(t, player)

	for i := 0; i < 4; i++ {
		trigger(t, a, "cat")
	}

	want := []string{"cat1.mp3", "cat2.mp3", "cat3.mp3", "cat4.mp3", "cat1.mp3"}
	if got := player.Starts(); !equal(got, want) {
		t.Errorf("starts = %v, want %v", got, want)
	}
	if got := rot.Get("cat"); got != 2 {
		t.Errorf("rotation = %d, want 2", got)
	}
}

func TestExhaustedChainReleasesAndAdvances(t *testing.T) {
	var outcomes []Outcome
	var mu sync.Mutex
	player := NewMockPlayer()
	a, rot := newTestArbitrator(t, player, WithOutcome(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}))
	rot.Set("dog", 3)

	trigger(t, a, "dog")

	if a.Busy() {
		t.Error("lock still held after exhaustion")
	}
	if got := player.Starts(); !equal(got, []string{"dog3.mp3", "dog1.mp3", "dog.mp3"}) {
		t.Errorf("starts = %v", got)
	}
	if got := rot.Get("dog"); got != 2 {
		t.Errorf("rotation = %d, want 2", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 1 || !outcomes[0].Exhausted {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	var chainErr *ChainError
	if !errors.As(outcomes[0].Err, &chainErr) || len(chainErr.Errors) != 3 {
		t.Errorf("expected ChainError with 3 failures, got %v", outcomes[0].Err)
	}
	if !errors.Is(outcomes[0].Err, ErrMediaMissing) {
		t.Error("chain error should wrap ErrMediaMissing")
	}
}

func TestLockDropsOverlappingTriggers(t *testing.T) {
	player := NewMockPlayer("cat1.mp3", "dog1.mp3")
	player.Hold = true
	a, _ := newTestArbitrator(t, player)

	if !a.Trigger("cat") {
		t.Fatal("first trigger dropped")
	}
	waitFor(t, func() bool { return len(player.Playbacks()) == 1 })

	if !a.Busy() {
		t.Fatal("expected lock held while playing")
	}
	if a.Trigger("dog") || a.Trigger("cat") {
		t.Fatal("overlapping trigger should be dropped")
	}

	player.Playbacks()[0].Finish(nil)
	a.Wait()

	if a.Busy() {
		t.Fatal("lock not released after playback ended")
	}
	if got := player.Starts(); !equal(got, []string{"cat1.mp3"}) {
		t.Errorf("dropped triggers reached the player: %v", got)
	}

	// Released: next trigger proceeds.
	if !a.Trigger("dog") {
		t.Fatal("trigger after release dropped")
	}
	waitFor(t, func() bool { return len(player.Playbacks()) == 2 })
	player.Playbacks()[1].Finish(nil)
	a.Wait()
}

func TestConcurrentTriggersOneAtATime(t *testing.T) {
	player := NewMockPlayer("a1.mp3", "b1.mp3", "c1.mp3")
	a, _ := newTestArbitrator(t, player)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			a.Trigger(label)
		}([]string{"a", "b", "c"}[i%3])
	}
	wg.Wait()
	a.Wait()

	if n := player.MaxInflight(); n > 1 {
		t.Errorf("max simultaneous playbacks = %d, want 1", n)
	}
}

func TestRejectedPlaybackNoFallbackNoAdvance(t *testing.T) {
	player := NewMockPlayer()
	player.StartFunc = func(ctx context.Context, path string) (Playback, error) {
		return nil, ErrPlaybackRejected
	}
	a, rot := newTestArbitrator(t, player)
	rot.Set("cat", 2)

	trigger(t, a, "cat")

	if got := player.Starts(); !equal(got, []string{"cat2.mp3"}) {
		t.Errorf("rejection should not fall back, starts = %v", got)
	}
	if got := rot.Get("cat"); got != 2 {
		t.Errorf("rotation = %d, want unchanged 2", got)
	}
	if a.Busy() {
		t.Error("lock held after rejection")
	}
}

func TestMidPlayFailureAdvances(t *testing.T) {
	player := NewMockPlayer()
	player.StartFunc = func(ctx context.Context, path string) (Playback, error) {
		pb := newMockPlayback(nil)
		pb.Finish(errors.New("decode error"))
		return pb, nil
	}
	a, rot := newTestArbitrator(t, player)

	trigger(t, a, "cow")

	if got := player.Starts(); !equal(got, []string{"cow1.mp3"}) {
		t.Errorf("mid-play failure should not fall back, starts = %v", got)
	}
	if got := rot.Get("cow"); got != 2 {
		t.Errorf("rotation = %d, want 2", got)
	}
}

func TestPlayerPanicReleasesLock(t *testing.T) {
	player := NewMockPlayer()
	player.StartFunc = func(ctx context.Context, path string) (Playback, error) {
		panic("boom")
	}
	a, _ := newTestArbitrator(t, player)

	trigger(t, a, "cow")
	if a.Busy() {
		t.Fatal("lock held after player panic")
	}
}

func TestCloseStopsPlaybackAndDropsTriggers(t *testing.T) {
	player := NewMockPlayer("cat1.mp3")
	player.Hold = true
	a, rot := newTestArbitrator(t, player)

	a.Trigger("cat")
	waitFor(t, func() bool { return len(player.Playbacks()) == 1 })

	a.Close()

	if a.Busy() {
		t.Error("lock held after Close")
	}
	if got := rot.Get("cat"); got != 1 {
		t.Errorf("cancelled cue should not advance rotation, got %d", got)
	}
	if a.Trigger("cat") {
		t.Error("trigger after Close should be dropped")
	}
}

func TestExecPlayerMissingAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := NewExecPlayer([]string{"true"}, log.Discard())

	_, err := p.Start(context.Background(), filepath.Join(dir, "cow1.mp3"))
	if !errors.Is(err, ErrMediaMissing) {
		t.Errorf("missing file: got %v, want ErrMediaMissing", err)
	}

	txt := filepath.Join(dir, "cow.txt")
	os.WriteFile(txt, []byte("x"), 0o644)
	_, err = p.Start(context.Background(), txt)
	if !errors.Is(err, ErrMediaMissing) {
		t.Errorf("unsupported format: got %v, want ErrMediaMissing", err)
	}
}

func TestExecPlayerMissingBinaryRejects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cow.mp3")
	os.WriteFile(path, []byte("x"), 0o644)

	p := NewExecPlayer([]string{"cuecam-no-such-player", "{path}"}, log.Discard())
	_, err := p.Start(context.Background(), path)
	if !errors.Is(err, ErrPlaybackRejected) {
		t.Errorf("got %v, want ErrPlaybackRejected", err)
	}
}

func TestExecPlayerEarlyExitFallsBack(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cat1.mp3", "cat2.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// cat2 cannot be decoded: the player exits with an error immediately.
	player := NewExecPlayer([]string{"sh", "-c", `case "$1" in *cat2*) exit 1;; esac`, "sh", "{path}"}, log.Discard())
	player.SetStartupWindow(time.Second)

	_, err := player.Start(context.Background(), filepath.Join(dir, "cat2.mp3"))
	if !errors.Is(err, ErrMediaMissing) {
		t.Fatalf("undecodable file: got %v, want ErrMediaMissing", err)
	}

	var out Outcome
	rot := NewRotation(session.NewMemory(), log.Discard())
	rot.Set("cat", 2)
	a := NewArbitrator(player, rot, dir, ".mp3",
		WithLogger(log.Discard()),
		WithOutcome(func(o Outcome) { out = o }),
	)
	defer a.Close()
	trigger(t, a, "cat")

	if out.Err != nil || filepath.Base(out.Path) != "cat1.mp3" {
		t.Errorf("outcome = %+v, want cat1.mp3 played", out)
	}
	if got := rot.Get("cat"); got != 2 {
		t.Errorf("rotation = %d, want 2", got)
	}
}

func TestValidLabel(t *testing.T) {
	tests := []struct {
		label string
		ok    bool
	}{
		{"cat", true},
		{"sea_lion", true},
		{"", false},
		{"../x", false},
		{"..", false},
		{`a\b`, false},
		{"a/b", false},
	}
	for _, tc := range tests {
		err := ValidLabel(tc.label)
		if (err == nil) != tc.ok {
			t.Errorf("ValidLabel(%q) = %v, want ok=%v", tc.label, err, tc.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("ValidLabel(%q) = %v, want ErrInvalidLabel", tc.label, err)
		}
	}

	player := NewMockPlayer("x.mp3")
	a, _ := newTestArbitrator(t, player)
	if a.Trigger("../x") {
		t.Error("Trigger accepted a label outside the media dir")
	}
	if a.Busy() || len(player.Starts()) != 0 {
		t.Error("rejected label should have no side effects")
	}
}

func TestTriggerRacingClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		player := NewMockPlayer("cat1.mp3")
		a, _ := newTestArbitrator(t, player)

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.Trigger("cat")
			}()
		}
		a.Close()
		wg.Wait()

		if a.Trigger("cat") {
			t.Fatal("Trigger accepted after Close")
		}
		a.Wait()
		if a.Busy() {
			t.Fatal("lock held after Close")
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	got := expand([]string{"play", "{path}", "--uri={uri}"}, "/srv/media/cow1.mp3")
	want := []string{"play", "/srv/media/cow1.mp3", "--uri=file:///srv/media/cow1.mp3"}
	if !equal(got, want) {
		t.Errorf("expand = %v, want %v", got, want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
