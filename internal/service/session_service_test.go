package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrdrift/internal/model"
	"okrdrift/internal/normalize"
	"okrdrift/internal/presentation"
)

type analyzeCall struct {
	ctx      context.Context
	req      SubmitRequest
	progress ProgressFunc
	result   chan model.RequestOutcome
}

// blockingAnalyzer hands every call to the test, which decides when and how it resolves
type blockingAnalyzer struct {
	calls chan *analyzeCall
}

func newBlockingAnalyzer() *blockingAnalyzer {
	return &blockingAnalyzer{calls: make(chan *analyzeCall, 8)}
}

func (a *blockingAnalyzer) SubmitAnalysis(ctx context.Context, req SubmitRequest, progress ProgressFunc) model.RequestOutcome {
	c := &analyzeCall{ctx: ctx, req: req, progress: progress, result: make(chan model.RequestOutcome, 1)}
	a.calls <- c
	return <-c.result
}

func (a *blockingAnalyzer) next(t *testing.T) *analyzeCall {
	t.Helper()
	select {
	case c := <-a.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no analyze call")
		return nil
	}
}

type memSessionCache struct {
	mu   sync.Mutex
	data map[string]model.SessionSnapshot
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{data: map[string]model.SessionSnapshot{}}
}

func (c *memSessionCache) Set(_ context.Context, s *model.SessionSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[s.SessionID] = *s
	return nil
}

func (c *memSessionCache) Get(_ context.Context, id string) (*model.SessionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memSessionCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	return nil
}

type memOutcomeRepo struct {
	mu      sync.Mutex
	records []*model.OutcomeRecord
}

func (r *memOutcomeRepo) Save(_ context.Context, rec *model.OutcomeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("rec-%d", len(r.records)+1)
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memOutcomeRepo) GetByID(_ context.Context, id string) (*model.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memOutcomeRepo) ListByStudent(_ context.Context, studentID string, _ int64) ([]*model.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.OutcomeRecord{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].StudentID == studentID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *memOutcomeRepo) ListBySession(_ context.Context, sessionID string) ([]*model.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.OutcomeRecord{}
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type sentMessage struct {
	session string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	sent         []sentMessage
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToSession(sessionID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMessage{sessionID, msgType, payload})
}

func (b *recordingBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

func (b *recordingBroadcaster) disconnects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.disconnected...)
}

func (b *recordingBroadcaster) ofType(msgType string) []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMessage
	for _, m := range b.sent {
		if m.msgType == msgType {
			out = append(out, m)
		}
	}
	return out
}

type sessionFixture struct {
	svc      *SessionService
	analyzer *blockingAnalyzer
	cache    *memSessionCache
	outcomes *memOutcomeRepo
	bc       *recordingBroadcaster
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		analyzer: newBlockingAnalyzer(),
		cache:    newMemSessionCache(),
		outcomes: &memOutcomeRepo{},
		bc:       &recordingBroadcaster{},
	}
	f.svc = NewSessionService(f.analyzer, f.cache, f.outcomes, NewAuthService("test", time.Hour), nil)
	f.svc.SetBroadcaster(f.bc)
	t.Cleanup(func() {
		// unblock anything still waiting so Close can return
		for {
			select {
			case c := <-f.analyzer.calls:
				c.result <- model.Failed(model.ErrorUnreachable)
				continue
			default:
			}
			break
		}
		f.svc.Close()
	})
	return f
}

func liveOutcome(goal string) model.RequestOutcome {
	return model.Live(normalize.Normalize(map[string]any{"student_id": 42, "quarterly_goal": goal}))
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	claims, err := f.svc.auth.ValidateSessionToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, claims.SessionID)

	snap, err := f.svc.ProvideStudentID(ctx, created.SessionID, "42")
	require.NoError(t, err)
	assert.Equal(t, model.StepCollectingGoal, snap.Step)

	snap, done, err := f.svc.Submit(ctx, created.SessionID, "Become a GenAI Expert", model.LevelIntermediate)
	require.NoError(t, err)
	assert.True(t, snap.Submitting)

	call := f.analyzer.next(t)
	assert.Equal(t, "42", call.req.StudentID)
	assert.Equal(t, model.LevelIntermediate, call.req.CurrentLevel)
	call.progress(model.ProgressEvent{Token: call.req.Token, Stage: "extracting history", Progress: 20})
	call.result <- model.Fallback(normalize.Normalize(map[string]any{"student_id": 42}))
	waitDone(t, done)

	snap, err = f.svc.Snapshot(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepDisplaying, snap.Step)
	assert.True(t, snap.UsedSyntheticData)

	require.Len(t, f.bc.ofType(MsgProgress), 1)
	assert.NotEmpty(t, f.bc.ofType(MsgStateChanged))

	records, err := f.svc.Outcomes(ctx, "42", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].UsedSyntheticData)
	assert.Equal(t, model.OutcomeFallback, records[0].Kind)

	bySession, err := f.svc.SessionOutcomes(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, records, bySession)

	record, err := f.svc.Outcome(ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, record.SessionID)
	_, err = f.svc.Outcome(ctx, "missing")
	assert.ErrorIs(t, err, ErrOutcomeNotFound)

	view, err := f.svc.View(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.TabTrajectory, view.Tab)

	_, err = f.svc.SelectTab(ctx, created.SessionID, model.TabCoaching)
	require.NoError(t, err)
	_, err = f.svc.ToggleMonth(ctx, created.SessionID, "Month 1")
	require.NoError(t, err)
	snap, err = f.svc.NewAnalysis(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepCollectingID, snap.Step)

	_, err = f.svc.View(ctx, created.SessionID)
	assert.ErrorIs(t, err, presentation.ErrInvalidTransition)
}

func TestSessionDiscardsSupersededOutcome(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.ProvideStudentID(ctx, created.SessionID, "42")
	require.NoError(t, err)

	_, doneA, err := f.svc.Submit(ctx, created.SessionID, "goal A", model.LevelBeginner)
	require.NoError(t, err)
	callA := f.analyzer.next(t)

	_, doneB, err := f.svc.Submit(ctx, created.SessionID, "goal B", model.LevelBeginner)
	require.NoError(t, err)
	callB := f.analyzer.next(t)

	assert.ErrorIs(t, callA.ctx.Err(), context.Canceled)

	// B resolves first; A arrives late and narrates after being superseded
	callB.result <- liveOutcome("goal B")
	waitDone(t, doneB)
	callA.progress(model.ProgressEvent{Token: callA.req.Token, Stage: "extracting history", Progress: 20})
	callA.result <- liveOutcome("goal A")
	waitDone(t, doneA)

	snap, err := f.svc.Snapshot(ctx, created.SessionID)
	require.NoError(t, err)
	require.NotNil(t, snap.Report)
	assert.Equal(t, "goal B", snap.Report.QuarterlyGoal)
	assert.Empty(t, f.bc.ofType(MsgProgress), "superseded progress is not pushed")

	records, err := f.svc.Outcomes(ctx, "42", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, callB.req.Token, records[0].Token)
}

func TestSessionFailedOutcomeAllowsResubmit(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.ProvideStudentID(ctx, created.SessionID, "42")
	require.NoError(t, err)

	_, done, err := f.svc.Submit(ctx, created.SessionID, "goal", model.LevelBeginner)
	require.NoError(t, err)
	f.analyzer.next(t).result <- model.Failed(model.ErrorMalformed)
	waitDone(t, done)

	snap, err := f.svc.Snapshot(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepCollectingGoal, snap.Step)
	assert.Equal(t, model.ErrorMalformed, snap.LastError)

	errs := f.bc.ofType(MsgError)
	require.Len(t, errs, 1)
	assert.Equal(t, model.ErrorEvent{Token: snap.Token, ErrorKind: model.ErrorMalformed}, errs[0].payload)

	_, done, err = f.svc.Submit(ctx, created.SessionID, "goal", model.LevelBeginner)
	require.NoError(t, err)
	f.analyzer.next(t).result <- liveOutcome("goal")
	waitDone(t, done)

	snap, err = f.svc.Snapshot(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepDisplaying, snap.Step)
}

func TestSessionRestoredFromCache(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.ProvideStudentID(ctx, created.SessionID, "42")
	require.NoError(t, err)

	// a second process sharing the cache
	other := NewSessionService(f.analyzer, f.cache, f.outcomes, NewAuthService("test", time.Hour), nil)
	t.Cleanup(other.Close)

	snap, err := other.Snapshot(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepCollectingGoal, snap.Step)
	assert.Equal(t, "42", snap.StudentID)

	_, err = other.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionInvalidInput(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.ProvideStudentID(ctx, created.SessionID, "abc")
	assert.ErrorIs(t, err, presentation.ErrInvalidStudentID)

	_, _, err = f.svc.Submit(ctx, created.SessionID, "goal", model.LevelBeginner)
	assert.ErrorIs(t, err, presentation.ErrInvalidTransition)

	_, err = f.svc.Back(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEvictIdleSessions(t *testing.T) {
	f := newSessionFixture(t)
	clock := &testClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	f.svc.SetClock(clock.Now)
	ctx := context.Background()

	assert.Empty(t, f.svc.EvictIdle(ctx), "eviction is off until a TTL is set")
	f.svc.SetIdleTTL(time.Hour)

	idle, err := f.svc.Create(ctx)
	require.NoError(t, err)
	active, err := f.svc.Create(ctx)
	require.NoError(t, err)
	pending, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.ProvideStudentID(ctx, pending.SessionID, "42")
	require.NoError(t, err)
	_, done, err := f.svc.Submit(ctx, pending.SessionID, "goal", model.LevelBeginner)
	require.NoError(t, err)
	call := f.analyzer.next(t)

	clock.Advance(30 * time.Minute)
	_, err = f.svc.Snapshot(ctx, active.SessionID)
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)

	assert.Equal(t, []string{idle.SessionID}, f.svc.EvictIdle(ctx))
	assert.Equal(t, []string{idle.SessionID}, f.bc.disconnects())

	cached, err := f.cache.Get(ctx, idle.SessionID)
	require.NoError(t, err)
	assert.Nil(t, cached, "an evicted session is not restored")
	_, err = f.svc.Snapshot(ctx, idle.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Snapshot(ctx, active.SessionID)
	assert.NoError(t, err)

	// a session with a submission in flight is never evicted
	snap, err := f.svc.Snapshot(ctx, pending.SessionID)
	require.NoError(t, err)
	assert.True(t, snap.Submitting)

	call.result <- liveOutcome("goal")
	waitDone(t, done)
}

func TestStartEvictionRunsUntilClose(t *testing.T) {
	f := newSessionFixture(t)
	clock := &testClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	f.svc.SetClock(clock.Now)
	f.svc.SetIdleTTL(time.Minute)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	f.svc.StartEviction(5 * time.Millisecond)
	// polled without touching the session so it stays idle
	require.Eventually(t, func() bool {
		f.svc.mu.Lock()
		defer f.svc.mu.Unlock()
		_, ok := f.svc.sessions[created.SessionID]
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.svc.Snapshot(ctx, created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStaleSnapshotIsNotPublished(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	e, err := f.svc.entry(ctx, created.SessionID)
	require.NoError(t, err)
	stale := e.machine.Snapshot()

	fresh, err := f.svc.ProvideStudentID(ctx, created.SessionID, "42")
	require.NoError(t, err)
	require.Greater(t, fresh.Version, stale.Version)

	// an older snapshot arriving late must not overwrite the newer one
	assert.False(t, f.svc.publish(ctx, e, stale))

	cached, err := f.cache.Get(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StepCollectingGoal, cached.Step)
	assert.Equal(t, fresh.Version, cached.Version)

	pushed := f.bc.ofType(MsgStateChanged)
	require.NotEmpty(t, pushed)
	last := pushed[len(pushed)-1].payload.(model.SessionSnapshot)
	assert.Equal(t, fresh.Version, last.Version)

	// a restored session starts from the cached version
	other := NewSessionService(f.analyzer, f.cache, f.outcomes, NewAuthService("test", time.Hour), nil)
	t.Cleanup(other.Close)
	restored, err := other.entry(ctx, created.SessionID)
	require.NoError(t, err)
	assert.False(t, other.publish(ctx, restored, stale))
	assert.False(t, other.publish(ctx, restored, fresh), "the cached version is already published")
}
