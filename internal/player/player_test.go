package player

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/progress"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
)

// manualTimer collects scheduled callbacks so tests decide when transitions settle
type manualTimer struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (m *manualTimer) after(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, f)
	m.delays = append(m.delays, d)
}

func (m *manualTimer) fire() int {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, f := range pending {
		f()
	}
	return len(pending)
}

type courseMap map[string]models.Course

func (c courseMap) Find(_ context.Context, id string) (models.Course, bool, error) {
	course, ok := c[id]
	return course, ok, nil
}

type failingTracker struct{}

func (failingTracker) Visit(context.Context, string, string) (models.UserProgress, error) {
	return models.UserProgress{}, errors.New("disk full")
}
func (failingTracker) RecordCompletion(context.Context, string, string, string) (models.UserProgress, error) {
	return models.UserProgress{}, errors.New("disk full")
}
func (failingTracker) GetProgress(context.Context, string, string) (*models.UserProgress, error) {
	return nil, errors.New("disk full")
}

var (
	intro = models.Course{
		ID:   "intro",
		Name: "Intro",
		Steps: []models.Step{
			{ID: "s1", Title: "Watch", Body: models.VideoBody{MediaType: models.MediaYouTube, VideoURL: "abc"}},
			{ID: "s2", Title: "Sign", Body: models.ActionBody{Label: "Signed"}},
			{ID: "s3", Title: "Next course", Body: models.LinkBody{CourseID: "security"}},
		},
	}
	security = models.Course{
		ID:    "security",
		Name:  "Security",
		Steps: []models.Step{{ID: "x1", Title: "Rules", Body: models.SOPBody{Content: "# Rules"}}},
	}
)

type harness struct {
	timer   *manualTimer
	tracker *progress.Tracker
	courses courseMap
}

func newHarness() *harness {
	return &harness{
		timer:   &manualTimer{},
		tracker: progress.NewTracker(kv.NewMemoryStore(), logger.Nop()),
		courses: courseMap{"intro": intro, "security": security},
	}
}

func (h *harness) start(t *testing.T, course models.Course, cfg Config) *Player {
	t.Helper()
	if cfg.TransitionDelay == 0 {
		cfg.TransitionDelay = 400 * time.Millisecond
	}
	return New(context.Background(), course, "u1", Deps{
		Progress: h.tracker,
		Courses:  h.courses,
		Log:      logger.Nop(),
		After:    h.timer.after,
	}, cfg)
}

func (h *harness) completed(t *testing.T, courseID string) []string {
	t.Helper()
	rec, err := h.tracker.GetProgress(context.Background(), "u1", courseID)
	if err != nil || rec == nil {
		t.Fatalf("GetProgress = %v, %v", rec, err)
	}
	return rec.CompletedStepIDs
}

func assertState(t *testing.T, p *Player, want State, wantIndex int) {
	t.Helper()
	state, idx := p.State()
	if state != want || idx != wantIndex {
		t.Fatalf("state = %s(%d), want %s(%d)", state, idx, want, wantIndex)
	}
}

func TestAdvanceWalksThroughSteps(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{})
	assertState(t, p, Viewing, 0)

	if err := p.Advance(ctx); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	assertState(t, p, Transitioning, 0)
	if h.timer.delays[0] != 400*time.Millisecond {
		t.Errorf("transition delay = %s", h.timer.delays[0])
	}
	h.timer.fire()
	assertState(t, p, Viewing, 1)

	_ = p.Advance(ctx)
	h.timer.fire()
	assertState(t, p, Viewing, 2)

	if got := h.completed(t, "intro"); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("completed = %v, want [s1 s2]", got)
	}
}

func TestAdvanceOnLastStepOpensReviewGate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{})

	for i := 0; i < 2; i++ {
		_ = p.Advance(ctx)
		h.timer.fire()
	}
	if err := p.Advance(ctx); err != nil {
		t.Fatalf("Advance on last step: %v", err)
	}
	if n := h.timer.fire(); n != 0 {
		t.Errorf("last step scheduled %d transitions, want none", n)
	}
	state, _ := p.State()
	if state != ReviewGate {
		t.Fatalf("state = %s, want review gate", state)
	}
	if got := h.completed(t, "intro"); len(got) != 3 || got[2] != "s3" {
		t.Errorf("completed = %v, want s3 added", got)
	}
	if err := p.Advance(ctx); !errors.Is(err, ErrNotViewing) {
		t.Errorf("Advance at review gate error = %v", err)
	}
}

func TestDoubleAdvanceDuringTransitionIsNoop(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{})

	_ = p.Advance(ctx)
	if err := p.Advance(ctx); err != nil {
		t.Fatalf("second Advance: %v", err)
	}
	if len(h.timer.pending) != 1 {
		t.Fatalf("scheduled %d transitions, want 1", len(h.timer.pending))
	}
	h.timer.fire()
	assertState(t, p, Viewing, 1)
	if got := h.completed(t, "intro"); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Errorf("completed = %v, want [s1]", got)
	}
}

func TestConcurrentAdvanceSettlesOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Advance(ctx)
		}()
	}
	wg.Wait()
	h.timer.fire()
	assertState(t, p, Viewing, 1)
}

func TestZeroDelayAdvancesImmediately(t *testing.T) {
	h := newHarness()
	p := New(context.Background(), intro, "u1", Deps{Progress: h.tracker, Courses: h.courses}, Config{TransitionDelay: -1})
	_ = p.Advance(context.Background())
	assertState(t, p, Viewing, 1)
}

func TestRealTimerSettles(t *testing.T) {
	h := newHarness()
	p := New(context.Background(), intro, "u1", Deps{Progress: h.tracker, Courses: h.courses}, Config{TransitionDelay: time.Millisecond})
	_ = p.Advance(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, idx := p.State(); state == Viewing && idx == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("transition never settled")
}

func TestResetAfterReviewStartsOverWithProgress(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, security, Config{})

	if err := p.ResetAfterReview(ctx); !errors.Is(err, ErrNotAtReviewGate) {
		t.Fatalf("ResetAfterReview while viewing error = %v", err)
	}
	_ = p.Advance(ctx)
	if err := p.ResetAfterReview(ctx); err != nil {
		t.Fatalf("ResetAfterReview: %v", err)
	}
	assertState(t, p, Viewing, 0)

	snap := p.Snapshot(ctx)
	if !reflect.DeepEqual(snap.CompletedStepIDs, []string{"x1"}) {
		t.Errorf("completed after reset = %v, want progress reloaded", snap.CompletedStepIDs)
	}
}

func TestResumeAtFirstIncompleteIsOptIn(t *testing.T) {
	ctx := context.Background()

	h := newHarness()
	_, _ = h.tracker.RecordCompletion(ctx, "u1", "intro", "s1")
	_, _ = h.tracker.RecordCompletion(ctx, "u1", "intro", "s2")

	p := h.start(t, intro, Config{})
	assertState(t, p, Viewing, 0)

	p = h.start(t, intro, Config{ResumeAtFirstIncomplete: true})
	assertState(t, p, Viewing, 2)

	_, _ = h.tracker.RecordCompletion(ctx, "u1", "intro", "s3")
	p = h.start(t, intro, Config{ResumeAtFirstIncomplete: true})
	assertState(t, p, Viewing, 0)
}

func TestSoftGateByDefault(t *testing.T) {
	h := newHarness()
	p := h.start(t, intro, Config{})
	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("video step blocked without hard gates: %v", err)
	}
}

func TestHardGateRequiresInteraction(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{HardGates: []models.StepType{models.StepVideo}})

	if snap := p.Snapshot(ctx); snap.CanAdvance || !snap.HardGated {
		t.Errorf("snapshot = canAdvance %v hardGated %v", snap.CanAdvance, snap.HardGated)
	}
	if err := p.Advance(ctx); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("Advance error = %v, want ErrStepIncomplete", err)
	}
	assertState(t, p, Viewing, 0)

	if err := p.MarkInteracted(); err != nil {
		t.Fatalf("MarkInteracted: %v", err)
	}
	if err := p.Advance(ctx); err != nil {
		t.Fatalf("Advance after interaction: %v", err)
	}
	h.timer.fire()

	// action steps are not gated in this configuration
	if err := p.Advance(ctx); err != nil {
		t.Fatalf("Advance on action step: %v", err)
	}
}

func TestFollowLinkSwitchesCourse(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{TransitionDelay: -1})
	_ = p.Advance(ctx)
	_ = p.Advance(ctx)
	assertState(t, p, Viewing, 2)

	snap := p.Snapshot(ctx)
	if snap.Link == nil || snap.Link.Dead || snap.Link.CourseName != "Security" {
		t.Fatalf("link view = %+v", snap.Link)
	}

	next, err := p.FollowLink(ctx, "")
	if err != nil {
		t.Fatalf("FollowLink: %v", err)
	}
	if next.ID != "security" || p.Course().ID != "security" {
		t.Fatalf("now playing %s", p.Course().ID)
	}
	assertState(t, p, Viewing, 0)
	if got := h.completed(t, "intro"); len(got) != 3 {
		t.Errorf("link step not completed: %v", got)
	}
	if rec, _ := h.tracker.GetProgress(ctx, "u1", "security"); rec == nil {
		t.Error("visit to linked course not recorded")
	}
}

func TestFollowLinkToDeletedCourse(t *testing.T) {
	h := newHarness()
	delete(h.courses, "security")
	ctx := context.Background()
	p := h.start(t, intro, Config{TransitionDelay: -1})
	_ = p.Advance(ctx)
	_ = p.Advance(ctx)

	snap := p.Snapshot(ctx)
	if snap.Link == nil || !snap.Link.Dead {
		t.Fatalf("link view = %+v, want dead link", snap.Link)
	}

	if _, err := p.FollowLink(ctx, ""); !errors.Is(err, ErrDeadLink) {
		t.Fatalf("FollowLink error = %v, want ErrDeadLink", err)
	}
	assertState(t, p, Viewing, 2)
	if p.Course().ID != "intro" {
		t.Errorf("context switched to %s on a dead link", p.Course().ID)
	}
	if got := h.completed(t, "intro"); len(got) != 3 {
		t.Errorf("dead link step not completed: %v", got)
	}
}

func TestFollowLinkFromNonLinkStep(t *testing.T) {
	h := newHarness()
	p := h.start(t, intro, Config{})
	if _, err := p.FollowLink(context.Background(), ""); !errors.Is(err, ErrNotLinkStep) {
		t.Errorf("FollowLink error = %v", err)
	}
}

func TestStaleTimerIgnoredAfterRestart(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.start(t, intro, Config{})

	_ = p.Advance(ctx)
	// jump straight to the linked course while the transition is pending
	p.mu.Lock()
	p.restart(ctx, security)
	p.mu.Unlock()

	h.timer.fire()
	assertState(t, p, Viewing, 0)
}

func TestEmptyCourseGoesToReviewGate(t *testing.T) {
	h := newHarness()
	p := h.start(t, models.Course{ID: "empty", Name: "Empty"}, Config{})

	snap := p.Snapshot(context.Background())
	if snap.Step != nil || snap.StepCount != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	state, _ := p.State()
	if state != ReviewGate {
		t.Errorf("state = %s, want review gate", state)
	}
}

func TestTrackerFailuresDoNotBlock(t *testing.T) {
	h := newHarness()
	p := New(context.Background(), intro, "u1", Deps{Progress: failingTracker{}, Courses: h.courses, After: h.timer.after}, Config{TransitionDelay: time.Second})
	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	h.timer.fire()
	assertState(t, p, Viewing, 1)
}

func TestSnapshotView(t *testing.T) {
	h := newHarness()
	p := h.start(t, intro, Config{})
	snap := p.Snapshot(context.Background())

	if snap.StepLabel != "Step 1 of 3" || snap.ProgressPercent != 33 {
		t.Errorf("label %q percent %d", snap.StepLabel, snap.ProgressPercent)
	}
	if snap.PlayableURL == "" {
		t.Error("video step has no playable url")
	}
	if len(snap.Blocks) != 1 || snap.Blocks[0].ID != "s1-description" {
		t.Errorf("blocks = %+v, want the description fallback", snap.Blocks)
	}
	if snap.State != "viewing" || !snap.CanAdvance {
		t.Errorf("state %q canAdvance %v", snap.State, snap.CanAdvance)
	}
}
