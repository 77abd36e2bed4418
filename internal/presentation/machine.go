// Package presentation holds the per-session wizard and result-tab state machine.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"okrdrift/internal/model"
	"okrdrift/internal/projection"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidStudentID  = errors.New("student id must be a decimal integer")
	ErrEmptyGoal         = errors.New("quarterly goal is required")
	ErrInvalidLevel      = errors.New("current level must be beginner, intermediate or advanced")
	ErrInvalidTab        = errors.New("unknown tab")
)

// Submission is handed to the caller that performs the analysis request.
// Ctx is cancelled as soon as the submission is superseded.
type Submission struct {
	Token         uint64
	Ctx           context.Context
	StudentID     string
	QuarterlyGoal string
	CurrentLevel  model.Level
}

// Machine is the presentation state of one session. All methods are safe for concurrent use;
// the mutex serializes them so each session observes a single ordered stream of events.
type Machine struct {
	mu  sync.Mutex
	now func() time.Time

	sessionID string
	step      model.Step

	studentID string
	goal      string
	level     model.Level

	// token is advanced by every submission, back navigation and reset.
	// Only an outcome carrying the latest token is applied.
	token      uint64
	submitting bool
	cancel     context.CancelFunc
	lastError  model.ErrorKind

	tab       model.Tab
	expansion projection.Expansion
	report    *model.AnalysisReport
	synthetic bool
	updatedAt time.Time
	// version increases with every state change
	version uint64
}

func New(sessionID string) *Machine {
	return NewWithClock(sessionID, time.Now)
}

func NewWithClock(sessionID string, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		now:       now,
		sessionID: sessionID,
		step:      model.StepCollectingID,
		updatedAt: now().UTC(),
		version:   1,
	}
}

// Restore rebuilds a machine from a stored snapshot. A submission that was in flight when the
// snapshot was taken is lost, so the restored machine is never submitting.
func Restore(s model.SessionSnapshot, now func() time.Time) *Machine {
	m := NewWithClock(s.SessionID, now)
	m.step = s.Step
	m.studentID = s.StudentID
	m.goal = s.QuarterlyGoal
	m.level = s.CurrentLevel
	m.token = s.Token
	m.lastError = s.LastError
	m.tab = s.ActiveTab
	m.expansion = projection.Expansion(s.ExpandedMonths).Clone()
	m.report = s.Report
	m.synthetic = s.UsedSyntheticData
	if !s.UpdatedAt.IsZero() {
		m.updatedAt = s.UpdatedAt
	}
	if s.Version > m.version {
		m.version = s.Version
	}
	switch m.step {
	case model.StepCollectingID, model.StepCollectingGoal:
	case model.StepDisplaying:
		if m.report == nil {
			m.step = model.StepCollectingGoal
		}
	default:
		m.step = model.StepCollectingID
	}
	return m
}

// ProvideID moves CollectingId to CollectingGoal
func (m *Machine) ProvideID(studentID string) error {
	id, err := parseStudentID(studentID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepCollectingID {
		return fmt.Errorf("%w: provide id while %s", ErrInvalidTransition, m.step)
	}
	m.studentID = id
	m.lastError = ""
	m.step = model.StepCollectingGoal
	m.touch()
	return nil
}

// Back returns from CollectingGoal to CollectingId and discards any pending submission
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepCollectingGoal {
		return fmt.Errorf("%w: back while %s", ErrInvalidTransition, m.step)
	}
	m.supersede()
	m.lastError = ""
	m.step = model.StepCollectingID
	m.touch()
	return nil
}

// BeginSubmit records the goal and level, supersedes any pending submission and returns the
// new submission. The returned context derives from parent.
func (m *Machine) BeginSubmit(parent context.Context, goal string, level model.Level) (Submission, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return Submission{}, ErrEmptyGoal
	}
	lvl, ok := ParseLevel(string(level))
	if !ok {
		return Submission{}, ErrInvalidLevel
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepCollectingGoal {
		return Submission{}, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, m.step)
	}
	m.supersede()

	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.submitting = true
	m.goal = goal
	m.level = lvl
	m.lastError = ""
	m.touch()

	return Submission{
		Token:         m.token,
		Ctx:           ctx,
		StudentID:     m.studentID,
		QuarterlyGoal: goal,
		CurrentLevel:  lvl,
	}, nil
}

// Apply applies outcome if token is still the latest and reports whether it did.
// Live and Fallback outcomes move to Displaying; Failed stays in CollectingGoal with the error kind recorded.
func (m *Machine) Apply(token uint64, outcome model.RequestOutcome) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.token || !m.submitting || m.step != model.StepCollectingGoal {
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.submitting = false

	if !outcome.Succeeded() {
		m.lastError = outcome.ErrorKind
		if m.lastError == "" {
			m.lastError = model.ErrorMalformed
		}
		m.touch()
		return true
	}

	m.report = outcome.Report
	m.synthetic = outcome.UsedSyntheticData
	m.lastError = ""
	m.tab = model.TabTrajectory
	m.expansion = nil
	m.step = model.StepDisplaying
	m.touch()
	return true
}

// SelectTab switches the active result tab without leaving Displaying
func (m *Machine) SelectTab(tab model.Tab) error {
	if !IsTab(tab) {
		return ErrInvalidTab
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepDisplaying {
		return fmt.Errorf("%w: select tab while %s", ErrInvalidTransition, m.step)
	}
	m.tab = tab
	m.touch()
	return nil
}

// ToggleMonth flips the expansion of one roadmap month
func (m *Machine) ToggleMonth(month string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepDisplaying {
		return fmt.Errorf("%w: toggle month while %s", ErrInvalidTransition, m.step)
	}
	m.expansion = m.expansion.Toggle(month)
	m.touch()
	return nil
}

// NewAnalysis leaves Displaying for CollectingId, dropping the current report
func (m *Machine) NewAnalysis() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepDisplaying {
		return fmt.Errorf("%w: new analysis while %s", ErrInvalidTransition, m.step)
	}
	m.supersede()
	m.step = model.StepCollectingID
	m.studentID = ""
	m.goal = ""
	m.level = ""
	m.lastError = ""
	m.tab = ""
	m.expansion = nil
	m.report = nil
	m.synthetic = false
	m.touch()
	return nil
}

// Current reports whether token is still the latest
func (m *Machine) Current(token uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return token == m.token
}

// Close cancels any pending submission
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supersede()
}

// Snapshot returns a copy of the current state that shares nothing mutable with the machine
func (m *Machine) Snapshot() model.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := model.SessionSnapshot{
		SessionID:         m.sessionID,
		Step:              m.step,
		StudentID:         m.studentID,
		QuarterlyGoal:     m.goal,
		CurrentLevel:      m.level,
		Submitting:        m.submitting,
		Token:             m.token,
		LastError:         m.lastError,
		Report:            m.report,
		UsedSyntheticData: m.synthetic,
		UpdatedAt:         m.updatedAt,
		Version:           m.version,
	}
	if m.step == model.StepDisplaying {
		s.ActiveTab = m.tab
		s.ExpandedMonths = m.expansion.Clone()
	}
	return s
}

// View projects the active tab. ok is false outside Displaying.
func (m *Machine) View() (view projection.View, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != model.StepDisplaying || m.report == nil {
		return projection.View{}, false
	}
	return projection.ForTab(m.tab, *m.report, m.expansion, m.synthetic), true
}

// supersede advances the token and cancels the pending submission, if any. Caller holds mu.
func (m *Machine) supersede() {
	m.token++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.submitting = false
}

func (m *Machine) touch() {
	m.updatedAt = m.now().UTC()
	m.version++
}

func parseStudentID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrInvalidStudentID
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return "", ErrInvalidStudentID
	}
	return strconv.FormatInt(n, 10), nil
}

// ParseLevel matches a level name case-insensitively
func ParseLevel(s string) (model.Level, bool) {
	l := model.Level(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range model.Levels {
		if l == known {
			return known, true
		}
	}
	return "", false
}

func IsTab(tab model.Tab) bool {
	for _, t := range model.Tabs {
		if t == tab {
			return true
		}
	}
	return false
}
