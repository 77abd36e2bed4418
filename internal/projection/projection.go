// Package projection derives presentation-only aggregates from a canonical report.
// Every function here is pure and total over a report produced by the normalizer.
package projection

import (
	"math"

	"okrdrift/internal/model"
)

// StrongThreshold is the pillar score at which a pillar counts as strong
const StrongThreshold = 70

// RadarPoint is one axis of the pillar radar chart
type RadarPoint struct {
	Pillar model.PillarCode `json:"pillar"`
	Name   string           `json:"name"`
	Score  int              `json:"score"`
}

// Radar returns one point per pillar in the fixed pillar order
func Radar(r model.AnalysisReport) []RadarPoint {
	points := make([]RadarPoint, 0, len(model.Pillars))
	for _, p := range model.Pillars {
		points = append(points, RadarPoint{
			Pillar: p,
			Name:   model.PillarNames[p],
			Score:  r.PillarAnalysis[p].Score,
		})
	}
	return points
}

// IsStrong reports whether a pillar score is at or above StrongThreshold
func IsStrong(score int) bool {
	return score >= StrongThreshold
}

// Partition splits the five pillars into strong and weak sets
type Partition struct {
	Strong []model.PillarCode `json:"strong"`
	Weak   []model.PillarCode `json:"weak"`
}

func Partitioned(r model.AnalysisReport) Partition {
	out := Partition{Strong: []model.PillarCode{}, Weak: []model.PillarCode{}}
	for _, p := range model.Pillars {
		if IsStrong(r.PillarAnalysis[p].Score) {
			out.Strong = append(out.Strong, p)
		} else {
			out.Weak = append(out.Weak, p)
		}
	}
	return out
}

// PillarCard is the per-pillar summary shown on the pillars tab
type PillarCard struct {
	Pillar     model.PillarCode `json:"pillar"`
	Name       string           `json:"name"`
	Score      int              `json:"score"`
	Focus      string           `json:"focus"`
	Completion int              `json:"completion"`
	Trend      model.Trend      `json:"trend"`
	Strong     bool             `json:"strong"`
}

func Cards(r model.AnalysisReport) []PillarCard {
	cards := make([]PillarCard, 0, len(model.Pillars))
	for _, p := range model.Pillars {
		ps := r.PillarAnalysis[p]
		cards = append(cards, PillarCard{
			Pillar:     p,
			Name:       model.PillarNames[p],
			Score:      ps.Score,
			Focus:      ps.Focus,
			Completion: ps.Completion,
			Trend:      ps.Trend,
			Strong:     IsStrong(ps.Score),
		})
	}
	return cards
}

// TimelineItem is one OKR on the trajectory timeline
type TimelineItem struct {
	Cycle          string           `json:"cycle"`
	Pillar         model.PillarCode `json:"pillar"`
	Objective      string           `json:"objective"`
	Percent        int              `json:"percent"`
	Status         model.OKRStatus  `json:"status"`
	NeedsAttention bool             `json:"needsAttention"`

	// LegacyStatusDiffers marks entries the older 0.8 cut-off would have shown as completed
	LegacyStatusDiffers bool `json:"legacyStatusDiffers,omitempty"`
}

func Timeline(r model.AnalysisReport) []TimelineItem {
	items := make([]TimelineItem, 0, len(r.OKRHistory))
	for _, e := range r.OKRHistory {
		status := e.Status
		if status == "" {
			status = model.StatusFromFraction(e.CompletionFraction)
		}
		items = append(items, TimelineItem{
			Cycle:          e.Cycle,
			Pillar:         e.Pillar,
			Objective:      e.Objective,
			Percent:        int(math.Round(e.CompletionFraction * 100)),
			Status:         status,
			NeedsAttention: status != model.StatusCompleted && e.CompletionFraction < model.AttentionThreshold,
			LegacyStatusDiffers: status != model.StatusCompleted &&
				e.CompletionFraction >= model.LegacyCompletedThreshold,
		})
	}
	return items
}
