package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrdrift/internal/model"
	"okrdrift/internal/normalize"
)

func sampleReport(t *testing.T) model.AnalysisReport {
	t.Helper()
	return normalize.Normalize(`{
		"student_id": 11,
		"pillar_analysis": {
			"CLT": {"score": 85, "trend": "up"},
			"CFC": {"score": 70},
			"SCD": {"score": 69},
			"SRI": {"score": 10}
		},
		"okr_history": [
			{"cycle": "Q1", "pillar": "CLT", "objective": "a", "completion_status": 0.95},
			{"cycle": "Q2", "pillar": "CFC", "objective": "b", "completion_status": 0.85},
			{"cycle": "Q3", "pillar": "SCD", "objective": "c", "completion_status": 0.3},
			{"cycle": "Q4", "pillar": "SRI", "objective": "d", "completion_status": 0.2, "status": "completed"}
		],
		"coaching_plan": {"quarterly_roadmap": {
			"Month 2": {"CLT": {"Learning": {"action": "b"}}},
			"Month 1": {"CLT": {"Learning": {"action": "a"}}},
			"Month 10": {}
		}}
	}`)
}

func TestRadarUsesFixedOrder(t *testing.T) {
	points := Radar(sampleReport(t))

	require.Len(t, points, 5)
	for i, p := range model.Pillars {
		assert.Equal(t, p, points[i].Pillar)
		assert.NotEmpty(t, points[i].Name)
	}
	assert.Equal(t, 85, points[0].Score)
	assert.Equal(t, 0, points[3].Score)
}

func TestPartitionIsDisjointAndExhaustive(t *testing.T) {
	reports := []model.AnalysisReport{
		sampleReport(t),
		normalize.Normalize(`{}`),
		normalize.Normalize(`{"pillars": [{"pillar": "CLT", "score": 100}, {"pillar": "CFC", "score": 100}, {"pillar": "SCD", "score": 100}, {"pillar": "IIPC", "score": 100}, {"pillar": "SRI", "score": 100}]}`),
	}
	for _, r := range reports {
		part := Partitioned(r)
		seen := map[model.PillarCode]int{}
		for _, p := range part.Strong {
			seen[p]++
			assert.GreaterOrEqual(t, r.PillarAnalysis[p].Score, StrongThreshold)
		}
		for _, p := range part.Weak {
			seen[p]++
			assert.Less(t, r.PillarAnalysis[p].Score, StrongThreshold)
		}
		require.Len(t, seen, 5)
		for _, p := range model.Pillars {
			assert.Equal(t, 1, seen[p], p)
		}
	}

	part := Partitioned(sampleReport(t))
	assert.Equal(t, []model.PillarCode{model.PillarCLT, model.PillarCFC}, part.Strong)
	assert.Equal(t, []model.PillarCode{model.PillarSCD, model.PillarIIPC, model.PillarSRI}, part.Weak)
}

func TestTimeline(t *testing.T) {
	items := Timeline(sampleReport(t))
	require.Len(t, items, 4)

	assert.Equal(t, 95, items[0].Percent)
	assert.Equal(t, model.StatusCompleted, items[0].Status)
	assert.False(t, items[0].LegacyStatusDiffers)

	assert.Equal(t, model.StatusInProgress, items[1].Status)
	assert.True(t, items[1].LegacyStatusDiffers)
	assert.False(t, items[1].NeedsAttention)

	assert.True(t, items[2].NeedsAttention)

	// explicit status is kept and never needs attention
	assert.Equal(t, model.StatusCompleted, items[3].Status)
	assert.False(t, items[3].NeedsAttention)
}

func TestExpansionToggle(t *testing.T) {
	var e Expansion
	assert.False(t, e.Expanded("Month 1"))
	assert.False(t, e.Expanded("Month 2"))

	once := e.Toggle("Month 1")
	assert.True(t, once.Expanded("Month 1"))
	assert.False(t, once.Expanded("Month 2"))
	assert.False(t, e.Expanded("Month 1"), "toggle must not modify the receiver")

	twice := once.Toggle("Month 1")
	assert.False(t, twice.Expanded("Month 1"))
	assert.False(t, twice.Expanded("Month 2"))
	assert.True(t, once.Expanded("Month 1"))
	assert.Empty(t, twice)
}

func TestExpansionToggleLeavesOtherMonths(t *testing.T) {
	e := Expansion{}.Toggle("Month 2")
	e = e.Toggle("Month 1")
	e = e.Toggle("Month 1")
	assert.True(t, e.Expanded("Month 2"))
	assert.False(t, e.Expanded("Month 1"))
}

func TestForTab(t *testing.T) {
	r := sampleReport(t)

	v := ForTab(model.TabTrajectory, r, nil, false)
	require.NotNil(t, v.Trajectory)
	assert.Nil(t, v.Pillars)
	assert.Nil(t, v.Drift)
	assert.Nil(t, v.Coaching)
	assert.Equal(t, "11", v.Header.StudentID)
	assert.Len(t, v.Trajectory.Timeline, 4)

	v = ForTab(model.TabPillars, r, nil, true)
	require.NotNil(t, v.Pillars)
	assert.True(t, v.UsedSyntheticData)
	assert.Len(t, v.Pillars.Cards, 5)
	assert.True(t, v.Pillars.Cards[0].Strong)

	v = ForTab(model.TabDrift, r, nil, false)
	require.NotNil(t, v.Drift)
	assert.Equal(t, model.DriftMedium, v.Drift.Level)

	v = ForTab(model.TabCoaching, r, Expansion{}.Toggle("Month 2"), false)
	require.NotNil(t, v.Coaching)
	require.Len(t, v.Coaching.Months, 3)
	assert.Equal(t, "Month 1", v.Coaching.Months[0].Month)
	assert.Equal(t, "Month 2", v.Coaching.Months[1].Month)
	assert.Equal(t, "Month 10", v.Coaching.Months[2].Month)
	assert.False(t, v.Coaching.Months[0].Expanded)
	assert.Nil(t, v.Coaching.Months[0].Pillars)
	assert.True(t, v.Coaching.Months[1].Expanded)
	assert.Equal(t, "b", v.Coaching.Months[1].Pillars[model.PillarCLT]["Learning"].Action)

	v = ForTab("unknown", r, nil, false)
	assert.Equal(t, model.TabTrajectory, v.Tab)
	assert.NotNil(t, v.Trajectory)
}
