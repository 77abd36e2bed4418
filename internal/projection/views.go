package projection

import (
	"time"

	"okrdrift/internal/model"
)

// View is the read-only projection of one result tab. Exactly one of the tab sections is set.
type View struct {
	Tab               model.Tab       `json:"tab"`
	Header            Header          `json:"header"`
	UsedSyntheticData bool            `json:"usedSyntheticData"`
	Trajectory        *TrajectoryView `json:"trajectory,omitempty"`
	Pillars           *PillarsView    `json:"pillars,omitempty"`
	Drift             *DriftView      `json:"drift,omitempty"`
	Coaching          *CoachingView   `json:"coaching,omitempty"`
}

// Header is shown above every tab
type Header struct {
	StudentID         string           `json:"studentId"`
	StudentName       string           `json:"studentName"`
	RegisterNumber    string           `json:"registerNumber,omitempty"`
	QuarterlyGoal     string           `json:"quarterlyGoal"`
	ReadinessScore    int              `json:"readinessScore"`
	DriftLevel        model.DriftLevel `json:"driftLevel"`
	AnalysisTimestamp time.Time        `json:"analysisTimestamp"`
}

type TrajectoryView struct {
	PatternSummary       string         `json:"patternSummary"`
	GoalAlignment        string         `json:"goalAlignment,omitempty"`
	CrossPillarSynergies []string       `json:"crossPillarSynergies"`
	Timeline             []TimelineItem `json:"timeline"`
}

type PillarsView struct {
	Cards     []PillarCard `json:"cards"`
	Radar     []RadarPoint `json:"radar"`
	Partition Partition    `json:"partition"`
}

type DriftView struct {
	Level       model.DriftLevel          `json:"level"`
	Reasoning   string                    `json:"reasoning"`
	Transitions []model.FlaggedTransition `json:"transitions"`
}

type CoachingView struct {
	QuarterlyGoal   string         `json:"quarterlyGoal"`
	CurrentLevel    model.Level    `json:"currentLevel"`
	Recommendations []string       `json:"recommendations"`
	Months          []RoadmapMonth `json:"months"`
}

// RoadmapMonth is one collapsible month section of the coaching roadmap.
// Pillars is only populated while the month is expanded.
type RoadmapMonth struct {
	Month    string                                            `json:"month"`
	Expanded bool                                              `json:"expanded"`
	Pillars  map[model.PillarCode]map[string]model.RoadmapItem `json:"pillars,omitempty"`
}

// ForTab builds the view of tab over r. An unknown tab falls back to the trajectory tab.
func ForTab(tab model.Tab, r model.AnalysisReport, expansion Expansion, usedSyntheticData bool) View {
	v := View{
		Tab:               tab,
		Header:            header(r),
		UsedSyntheticData: usedSyntheticData,
	}
	switch tab {
	case model.TabPillars:
		v.Pillars = &PillarsView{Cards: Cards(r), Radar: Radar(r), Partition: Partitioned(r)}
	case model.TabDrift:
		v.Drift = &DriftView{Level: r.DriftLevel, Reasoning: r.DriftReasoning, Transitions: r.FlaggedTransitions}
	case model.TabCoaching:
		v.Coaching = coaching(r, expansion)
	default:
		v.Tab = model.TabTrajectory
		v.Trajectory = &TrajectoryView{
			PatternSummary:       r.PatternSummary,
			GoalAlignment:        r.GoalAlignment,
			CrossPillarSynergies: r.CrossPillarSynergies,
			Timeline:             Timeline(r),
		}
	}
	return v
}

func header(r model.AnalysisReport) Header {
	return Header{
		StudentID:         r.StudentID,
		StudentName:       r.StudentName,
		RegisterNumber:    r.RegisterNumber,
		QuarterlyGoal:     r.QuarterlyGoal,
		ReadinessScore:    r.ReadinessScore,
		DriftLevel:        r.DriftLevel,
		AnalysisTimestamp: r.AnalysisTimestamp,
	}
}

func coaching(r model.AnalysisReport, expansion Expansion) *CoachingView {
	cv := &CoachingView{
		QuarterlyGoal:   r.QuarterlyGoal,
		CurrentLevel:    r.CurrentLevel,
		Recommendations: r.CoachingRecommendations,
		Months:          []RoadmapMonth{},
	}
	for _, m := range r.QuarterlyRoadmap.Months() {
		month := RoadmapMonth{Month: m, Expanded: expansion.Expanded(m)}
		if month.Expanded {
			month.Pillars = r.QuarterlyRoadmap[m]
		}
		cv.Months = append(cv.Months, month)
	}
	return cv
}
