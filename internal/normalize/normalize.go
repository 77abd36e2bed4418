// Package normalize maps every known analysis-service payload shape onto model.AnalysisReport.
// It is the only place in the module that inspects raw payload structure.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"okrdrift/internal/model"
)

// Normalizer converts raw payloads into canonical reports. It never fails: missing or mistyped
// fields fall back to their declared defaults.
type Normalizer struct {
	now func() time.Time
}

// New returns a Normalizer that stamps undated payloads with the current time
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock returns a Normalizer with an injected clock
func NewWithClock(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

var defaultNormalizer = New()

// Normalize is shorthand for New().Normalize(raw)
func Normalize(raw any) model.AnalysisReport {
	return defaultNormalizer.Normalize(raw)
}

// Normalize accepts raw JSON bytes, a JSON string, a gjson.Result, or any value that
// encoding/json can marshal, and returns a fully populated report.
func (n *Normalizer) Normalize(raw any) model.AnalysisReport {
	return n.normalize(parse(raw))
}

// NormalizeMany accepts either a JSON array of reports or a single report object. A JSON null
// yields no reports. ok is false when the payload is anything else, including a non-empty array
// with no object elements.
func (n *Normalizer) NormalizeMany(raw any) (reports []model.AnalysisReport, ok bool) {
	root := parse(raw)
	switch {
	case root.Type == gjson.Null && root.Raw != "":
		return []model.AnalysisReport{}, true
	case root.IsArray():
		reports = []model.AnalysisReport{}
		for _, item := range root.Array() {
			if !item.IsObject() {
				continue
			}
			reports = append(reports, n.normalize(item))
		}
		if len(reports) == 0 && len(root.Array()) > 0 {
			return nil, false
		}
		return reports, true
	case root.IsObject():
		return []model.AnalysisReport{n.normalize(root)}, true
	}
	return nil, false
}

// Recognizable reports whether raw is a JSON object carrying a student identifier at any known
// path, the minimum shape required to treat a response as a live analysis.
func Recognizable(raw any) bool {
	root := parse(raw)
	if !root.IsObject() {
		return false
	}
	_, ok := first(root, studentIDPaths, identifier)
	return ok
}

func parse(raw any) gjson.Result {
	switch v := raw.(type) {
	case nil:
		return gjson.Result{}
	case gjson.Result:
		return v
	case []byte:
		if !gjson.ValidBytes(v) {
			return gjson.Result{}
		}
		return gjson.ParseBytes(v)
	case json.RawMessage:
		if !gjson.ValidBytes(v) {
			return gjson.Result{}
		}
		return gjson.ParseBytes(v)
	case string:
		if !gjson.Valid(v) {
			return gjson.Result{}
		}
		return gjson.Parse(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return gjson.Result{}
		}
		return gjson.ParseBytes(data)
	}
}

func (n *Normalizer) normalize(root gjson.Result) model.AnalysisReport {
	if !root.IsObject() {
		root = gjson.Result{}
	}

	studentID := firstOr(root, studentIDPaths, identifier, "")
	defaultName := unknownStudentName
	if studentID != "" {
		defaultName = "Student " + studentID
	}

	return model.AnalysisReport{
		StudentID:      studentID,
		StudentName:    firstOr(root, studentNamePaths, text, defaultName),
		RegisterNumber: firstOr(root, registerNumberPaths, identifier, ""),

		QuarterlyGoal:  firstOr(root, quarterlyGoalPaths, text, defaultQuarterlyGoal),
		CurrentLevel:   firstOr(root, currentLevelPaths, level, model.LevelBeginner),
		ReadinessScore: firstOr(root, readinessScorePaths, percent, 0),

		PatternSummary: firstOr(root, patternSummaryPaths, text, defaultPatternSummary),

		DriftLevel:         firstOr(root, driftLevelPaths, driftLevel, model.DriftMedium),
		DriftReasoning:     firstOr(root, driftReasoningPaths, text, defaultDriftReasoning),
		FlaggedTransitions: firstOr(root, flaggedTransitionsPaths, transitions, []model.FlaggedTransition{}),

		PillarAnalysis: pillarAnalysis(root),
		OKRHistory:     firstOr(root, okrHistoryPaths, okrHistory, []model.OKREntry{}),

		CoachingRecommendations: firstOr(root, coachingRecommendationsPaths, stringList, []string{}),
		GoalAlignment:           firstOr(root, goalAlignmentPaths, text, ""),
		CrossPillarSynergies:    firstOr(root, crossPillarSynergiesPaths, stringList, []string{}),
		QuarterlyRoadmap:        firstOr(root, quarterlyRoadmapPaths, roadmap, model.Roadmap{}),

		AnalysisTimestamp: firstOr(root, analysisTimestampPaths, timestamp, n.now().UTC().Round(0)),
		SourceID:          firstOr(root, sourceIDPaths, identifier, ""),
	}
}
