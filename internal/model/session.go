package model

import "time"

// Step is the wizard position of a presentation session
type Step string

const (
	StepCollectingID   Step = "collecting_id"
	StepCollectingGoal Step = "collecting_goal"
	StepDisplaying     Step = "displaying"
)

type Tab string

const (
	TabTrajectory Tab = "trajectory"
	TabPillars    Tab = "pillars"
	TabDrift      Tab = "drift"
	TabCoaching   Tab = "coaching"
)

// Tabs lists the result tabs in display order
var Tabs = []Tab{TabTrajectory, TabPillars, TabDrift, TabCoaching}

// SessionSnapshot is the read-only view of a presentation session
type SessionSnapshot struct {
	SessionID         string          `json:"sessionId"`
	Step              Step            `json:"step"`
	StudentID         string          `json:"studentId,omitempty"`
	QuarterlyGoal     string          `json:"quarterlyGoal,omitempty"`
	CurrentLevel      Level           `json:"currentLevel,omitempty"`
	Submitting        bool            `json:"submitting"`
	Token             uint64          `json:"token"`
	LastError         ErrorKind       `json:"lastError,omitempty"`
	ActiveTab         Tab             `json:"activeTab,omitempty"`
	ExpandedMonths    map[string]bool `json:"expandedMonths,omitempty"`
	Report            *AnalysisReport `json:"report,omitempty"`
	UsedSyntheticData bool            `json:"usedSyntheticData"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Version           uint64          `json:"version"`
}
