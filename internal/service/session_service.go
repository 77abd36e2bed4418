package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"okrdrift/internal/cache"
	"okrdrift/internal/model"
	"okrdrift/internal/platform/logger"
	"okrdrift/internal/presentation"
	"okrdrift/internal/projection"
	"okrdrift/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOutcomeNotFound = errors.New("outcome not found")
)

// Analyzer produces the outcome of one submission
type Analyzer interface {
	SubmitAnalysis(ctx context.Context, req SubmitRequest, progress ProgressFunc) model.RequestOutcome
}

type sessionEntry struct {
	machine  *presentation.Machine
	lastSeen time.Time // guarded by SessionService.mu

	// pubMu orders persisted and pushed snapshots; published is the last version sent
	pubMu     sync.Mutex
	published uint64
}

// SessionService owns one presentation machine per session. Submissions run in their own
// goroutine; only an outcome whose token is still current is applied, persisted and pushed.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	idleTTL  time.Duration

	analyzer    Analyzer
	cache       cache.SessionCache
	outcomes    repository.OutcomeRepo
	auth        *AuthService
	broadcaster Broadcaster
	log         *logger.Logger
	now         func() time.Time

	// submissions derive from baseCtx so Close can stop them
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewSessionService creates a new session service. cache and outcomes may be nil.
func NewSessionService(analyzer Analyzer, sessionCache cache.SessionCache, outcomes repository.OutcomeRepo, auth *AuthService, log *logger.Logger) *SessionService {
	if log == nil {
		log = logger.NewNop()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &SessionService{
		sessions:    make(map[string]*sessionEntry),
		analyzer:    analyzer,
		cache:       sessionCache,
		outcomes:    outcomes,
		auth:        auth,
		broadcaster: noopBroadcaster{},
		log:         log.Component("session_service"),
		now:         time.Now,
		baseCtx:     baseCtx,
		stop:        stop,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	s.broadcaster = b
}

// SetClock replaces the clock used for machines and idle tracking
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// SetIdleTTL sets how long a session may go untouched before EvictIdle drops it.
// Zero disables eviction.
func (s *SessionService) SetIdleTTL(ttl time.Duration) {
	s.mu.Lock()
	s.idleTTL = ttl
	s.mu.Unlock()
}

// Create starts a session in CollectingId and returns its id with a session token
func (s *SessionService) Create(ctx context.Context) (*model.SessionTokenResponse, error) {
	id := uuid.NewString()
	token, err := s.auth.GenerateSessionToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	e := &sessionEntry{machine: presentation.NewWithClock(id, s.now), lastSeen: s.now()}
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.publish(ctx, e, e.machine.Snapshot())
	s.log.Info("session created", "session", id)
	return &model.SessionTokenResponse{SessionID: id, Token: token}, nil
}

// Snapshot returns the current state of a session
func (s *SessionService) Snapshot(ctx context.Context, id string) (model.SessionSnapshot, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	return e.machine.Snapshot(), nil
}

func (s *SessionService) ProvideStudentID(ctx context.Context, id, studentID string) (model.SessionSnapshot, error) {
	return s.mutate(ctx, id, func(m *presentation.Machine) error {
		return m.ProvideID(studentID)
	})
}

func (s *SessionService) Back(ctx context.Context, id string) (model.SessionSnapshot, error) {
	return s.mutate(ctx, id, (*presentation.Machine).Back)
}

func (s *SessionService) SelectTab(ctx context.Context, id string, tab model.Tab) (model.SessionSnapshot, error) {
	return s.mutate(ctx, id, func(m *presentation.Machine) error {
		return m.SelectTab(tab)
	})
}

func (s *SessionService) ToggleMonth(ctx context.Context, id, month string) (model.SessionSnapshot, error) {
	return s.mutate(ctx, id, func(m *presentation.Machine) error {
		return m.ToggleMonth(month)
	})
}

func (s *SessionService) NewAnalysis(ctx context.Context, id string) (model.SessionSnapshot, error) {
	return s.mutate(ctx, id, (*presentation.Machine).NewAnalysis)
}

// View returns the projection of the active tab
func (s *SessionService) View(ctx context.Context, id string) (projection.View, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return projection.View{}, err
	}
	view, ok := e.machine.View()
	if !ok {
		return projection.View{}, fmt.Errorf("%w: no report to display", presentation.ErrInvalidTransition)
	}
	return view, nil
}

// Submit supersedes any pending submission and starts a new one in the background.
// The returned channel is closed once the outcome was applied or discarded.
func (s *SessionService) Submit(ctx context.Context, id, goal string, level model.Level) (model.SessionSnapshot, <-chan struct{}, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return model.SessionSnapshot{}, nil, err
	}
	sub, err := e.machine.BeginSubmit(s.baseCtx, goal, level)
	if err != nil {
		return model.SessionSnapshot{}, nil, err
	}

	snapshot := e.machine.Snapshot()
	s.publish(ctx, e, snapshot)

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.run(e, id, sub)
	}()
	return snapshot, done, nil
}

func (s *SessionService) run(e *sessionEntry, id string, sub presentation.Submission) {
	m := e.machine
	progress := func(ev model.ProgressEvent) {
		if m.Current(ev.Token) {
			s.broadcaster.BroadcastToSession(id, MsgProgress, ev)
		}
	}
	outcome := s.analyzer.SubmitAnalysis(sub.Ctx, SubmitRequest{
		Token:         sub.Token,
		StudentID:     sub.StudentID,
		QuarterlyGoal: sub.QuarterlyGoal,
		CurrentLevel:  sub.CurrentLevel,
	}, progress)

	if !m.Apply(sub.Token, outcome) {
		s.log.Debug("discarded superseded outcome", "session", id, "seq", sub.Token, "kind", outcome.Kind)
		return
	}
	s.log.Info("outcome applied", "session", id, "seq", sub.Token, "kind", outcome.Kind, "synthetic", outcome.UsedSyntheticData)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.publish(ctx, e, m.Snapshot())
	s.archive(ctx, id, sub, outcome)
	if outcome.Kind == model.OutcomeFailed {
		kind := outcome.ErrorKind
		if kind == "" {
			kind = model.ErrorMalformed
		}
		s.broadcaster.BroadcastToSession(id, MsgError, model.ErrorEvent{Token: sub.Token, ErrorKind: kind})
	}
}

// Outcomes lists archived outcomes for a student, newest first
func (s *SessionService) Outcomes(ctx context.Context, studentID string, limit int64) ([]*model.OutcomeRecord, error) {
	if s.outcomes == nil {
		return []*model.OutcomeRecord{}, nil
	}
	return s.outcomes.ListByStudent(ctx, studentID, limit)
}

// SessionOutcomes lists archived outcomes of one session in submission order
func (s *SessionService) SessionOutcomes(ctx context.Context, sessionID string) ([]*model.OutcomeRecord, error) {
	if s.outcomes == nil {
		return []*model.OutcomeRecord{}, nil
	}
	return s.outcomes.ListBySession(ctx, sessionID)
}

// Outcome returns one archived outcome
func (s *SessionService) Outcome(ctx context.Context, id string) (*model.OutcomeRecord, error) {
	if s.outcomes == nil {
		return nil, ErrOutcomeNotFound
	}
	record, err := s.outcomes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcome: %w", err)
	}
	if record == nil {
		return nil, ErrOutcomeNotFound
	}
	return record, nil
}

// EvictIdle drops sessions untouched for longer than the idle TTL together with their cached
// snapshot and subscribers. Sessions with a submission in flight are kept.
func (s *SessionService) EvictIdle(ctx context.Context) []string {
	s.mu.Lock()
	if s.idleTTL <= 0 {
		s.mu.Unlock()
		return nil
	}
	cutoff := s.now().Add(-s.idleTTL)
	var evicted []string
	for id, e := range s.sessions {
		if e.lastSeen.After(cutoff) || e.machine.Snapshot().Submitting {
			continue
		}
		delete(s.sessions, id)
		e.machine.Close()
		evicted = append(evicted, id)
	}
	s.mu.Unlock()

	for _, id := range evicted {
		if s.cache != nil {
			if err := s.cache.Delete(ctx, id); err != nil {
				s.log.Warn("failed to drop cached session", "session", id, "error", err)
			}
		}
		s.broadcaster.DisconnectSession(id)
	}
	if len(evicted) > 0 {
		s.log.Info("evicted idle sessions", "count", len(evicted))
	}
	return evicted
}

// StartEviction runs EvictIdle every interval until Close
func (s *SessionService) StartEviction(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.baseCtx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(s.baseCtx, 5*time.Second)
				s.EvictIdle(ctx)
				cancel()
			}
		}
	}()
}

// Close cancels every pending submission, waits for their goroutines and drops subscribers
func (s *SessionService) Close() {
	s.stop()
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id, e := range s.sessions {
		e.machine.Close()
		ids = append(ids, id)
	}
	s.mu.Unlock()
	s.wg.Wait()

	for _, id := range ids {
		s.broadcaster.DisconnectSession(id)
	}
}

func (s *SessionService) mutate(ctx context.Context, id string, fn func(*presentation.Machine) error) (model.SessionSnapshot, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if err := fn(e.machine); err != nil {
		return model.SessionSnapshot{}, err
	}
	snapshot := e.machine.Snapshot()
	s.publish(ctx, e, snapshot)
	return snapshot, nil
}

// entry returns the live session for id, restoring it from the cache when this process has
// not seen it yet, and marks it as used
func (s *SessionService) entry(ctx context.Context, id string) (*sessionEntry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.lastSeen = s.now()
	}
	s.mu.Unlock()
	if ok {
		return e, nil
	}
	if s.cache == nil {
		return nil, ErrSessionNotFound
	}

	snapshot, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if snapshot == nil {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.lastSeen = s.now()
		return e, nil
	}
	e = &sessionEntry{
		machine:   presentation.Restore(*snapshot, s.now),
		lastSeen:  s.now(),
		published: snapshot.Version,
	}
	s.sessions[id] = e
	s.log.Debug("session restored", "session", id, "step", snapshot.Step)
	return e, nil
}

// publish persists and pushes snapshot unless a newer version already went out
func (s *SessionService) publish(ctx context.Context, e *sessionEntry, snapshot model.SessionSnapshot) bool {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	if snapshot.Version <= e.published {
		s.log.Debug("skipped stale snapshot", "session", snapshot.SessionID, "version", snapshot.Version, "published", e.published)
		return false
	}
	e.published = snapshot.Version

	if s.cache != nil {
		if err := s.cache.Set(ctx, &snapshot); err != nil {
			s.log.Warn("failed to cache session", "session", snapshot.SessionID, "error", err)
		}
	}
	s.broadcaster.BroadcastToSession(snapshot.SessionID, MsgStateChanged, snapshot)
	return true
}

func (s *SessionService) archive(ctx context.Context, id string, sub presentation.Submission, outcome model.RequestOutcome) {
	if s.outcomes == nil {
		return
	}
	record := &model.OutcomeRecord{
		SessionID:         id,
		StudentID:         sub.StudentID,
		Token:             sub.Token,
		Kind:              outcome.Kind,
		UsedSyntheticData: outcome.UsedSyntheticData,
		ErrorKind:         outcome.ErrorKind,
		Report:            outcome.Report,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.outcomes.Save(ctx, record); err != nil {
		s.log.Warn("failed to archive outcome", "session", id, "error", err)
	}
}
