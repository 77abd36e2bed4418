package model

import "time"

// PillarCode identifies one of the five competency pillars
type PillarCode string

const (
	PillarCLT  PillarCode = "CLT"
	PillarCFC  PillarCode = "CFC"
	PillarSCD  PillarCode = "SCD"
	PillarIIPC PillarCode = "IIPC"
	PillarSRI  PillarCode = "SRI"
)

// Pillars is the fixed pillar order used everywhere a report is projected
var Pillars = []PillarCode{PillarCLT, PillarCFC, PillarSCD, PillarIIPC, PillarSRI}

// PillarNames maps pillar codes to their long names
var PillarNames = map[PillarCode]string{
	PillarCLT:  "Continuous Learning & Training",
	PillarCFC:  "Create, Fund & Commercialize",
	PillarSCD:  "Skill & Competency Development",
	PillarIIPC: "Industry Integration & Professional Connect",
	PillarSRI:  "Social Responsibility & Impact",
}

// IsPillar reports whether code is one of the five fixed pillars
func IsPillar(code PillarCode) bool {
	_, ok := PillarNames[code]
	return ok
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists the accepted skill levels
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

type DriftLevel string

const (
	DriftLow    DriftLevel = "Low"
	DriftMedium DriftLevel = "Medium"
	DriftHigh   DriftLevel = "High"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type OKRStatus string

const (
	StatusCompleted  OKRStatus = "completed"
	StatusInProgress OKRStatus = "in-progress"
)

// AnalysisReport is the canonical view model every backend payload is normalized into.
// It is never mutated after construction.
type AnalysisReport struct {
	StudentID      string `json:"studentId" bson:"studentId"`
	StudentName    string `json:"studentName" bson:"studentName"`
	RegisterNumber string `json:"registerNumber" bson:"registerNumber"`

	QuarterlyGoal  string `json:"quarterlyGoal" bson:"quarterlyGoal"`
	CurrentLevel   Level  `json:"currentLevel" bson:"currentLevel"`
	ReadinessScore int    `json:"readinessScore" bson:"readinessScore"` // 0-100

	PatternSummary string `json:"patternSummary" bson:"patternSummary"`

	DriftLevel         DriftLevel          `json:"driftLevel" bson:"driftLevel"`
	DriftReasoning     string              `json:"driftReasoning" bson:"driftReasoning"`
	FlaggedTransitions []FlaggedTransition `json:"flaggedTransitions" bson:"flaggedTransitions"`

	PillarAnalysis map[PillarCode]PillarScore `json:"pillarAnalysis" bson:"pillarAnalysis"`
	OKRHistory     []OKREntry                 `json:"okrHistory" bson:"okrHistory"`

	CoachingRecommendations []string `json:"coachingRecommendations" bson:"coachingRecommendations"`
	GoalAlignment           string   `json:"goalAlignment" bson:"goalAlignment"`
	CrossPillarSynergies    []string `json:"crossPillarSynergies" bson:"crossPillarSynergies"`
	QuarterlyRoadmap        Roadmap  `json:"quarterlyRoadmap" bson:"quarterlyRoadmap"`

	AnalysisTimestamp time.Time `json:"analysisTimestamp" bson:"analysisTimestamp"`
	SourceID          string    `json:"sourceId" bson:"sourceId"`
}

// FlaggedTransition is a pillar-to-pillar shift considered potentially off-goal
type FlaggedTransition struct {
	From            string `json:"from" bson:"from"`
	To              string `json:"to" bson:"to"`
	Reason          string `json:"reason" bson:"reason"`
	SuggestedAction string `json:"suggestedAction,omitempty" bson:"suggestedAction,omitempty"`
}

// PillarScore holds per-pillar analytics. Score and Completion are integer percentages.
type PillarScore struct {
	Score      int    `json:"score" bson:"score"`
	Focus      string `json:"focus" bson:"focus"`
	Completion int    `json:"completion" bson:"completion"`
	Trend      Trend  `json:"trend" bson:"trend"`
}

// OKREntry is one objective from the student's history
type OKREntry struct {
	Cycle              string     `json:"cycle" bson:"cycle"`
	Pillar             PillarCode `json:"pillar" bson:"pillar"`
	Objective          string     `json:"objective" bson:"objective"`
	CompletionFraction float64    `json:"completionFraction" bson:"completionFraction"` // 0-1
	Status             OKRStatus  `json:"status" bson:"status"`
}

// Roadmap is month label -> pillar -> OKR type label -> item
type Roadmap map[string]map[PillarCode]map[string]RoadmapItem

// RoadmapItem is a single recommended OKR in the coaching roadmap
type RoadmapItem struct {
	Action          string           `json:"action" bson:"action"`
	Recommendations []Recommendation `json:"recommendations,omitempty" bson:"recommendations,omitempty"`
	SuccessMetrics  []string         `json:"successMetrics,omitempty" bson:"successMetrics,omitempty"`
	Ideas           []string         `json:"ideas,omitempty" bson:"ideas,omitempty"`
}

// Recommendation is an external learning resource
type Recommendation struct {
	Title       string `json:"title" bson:"title"`
	URL         string `json:"url" bson:"url"`
	Description string `json:"description" bson:"description"`
}

// Months returns the roadmap month labels in their natural order
func (r Roadmap) Months() []string {
	months := make([]string, 0, len(r))
	for m := range r {
		months = append(months, m)
	}
	sortMonths(months)
	return months
}

const (
	// CompletedThreshold is the completion fraction at which an OKR without an explicit
	// status counts as completed.
	CompletedThreshold = 0.9
	// LegacyCompletedThreshold is the cut-off one older timeline view used. Kept only so
	// reports can flag entries whose status would differ between the two.
	LegacyCompletedThreshold = 0.8
	// AttentionThreshold marks timeline entries below this fraction as needing attention
	AttentionThreshold = 0.5
)

// StatusFromFraction derives an OKR status when the payload carries none
func StatusFromFraction(f float64) OKRStatus {
	if f >= CompletedThreshold {
		return StatusCompleted
	}
	return StatusInProgress
}
