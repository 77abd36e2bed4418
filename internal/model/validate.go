package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Validate checks the canonical report invariants
func (r *AnalysisReport) Validate() error {
	if len(r.PillarAnalysis) != len(Pillars) {
		return fmt.Errorf("pillar analysis has %d entries, want %d", len(r.PillarAnalysis), len(Pillars))
	}
	for _, p := range Pillars {
		ps, ok := r.PillarAnalysis[p]
		if !ok {
			return fmt.Errorf("pillar %s missing", p)
		}
		if !inPercent(ps.Score) || !inPercent(ps.Completion) {
			return fmt.Errorf("pillar %s out of range: score=%d completion=%d", p, ps.Score, ps.Completion)
		}
		switch ps.Trend {
		case TrendUp, TrendDown, TrendStable:
		default:
			return fmt.Errorf("pillar %s has invalid trend %q", p, ps.Trend)
		}
	}
	switch r.DriftLevel {
	case DriftLow, DriftMedium, DriftHigh:
	default:
		return fmt.Errorf("invalid drift level %q", r.DriftLevel)
	}
	switch r.CurrentLevel {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		return fmt.Errorf("invalid current level %q", r.CurrentLevel)
	}
	if !inPercent(r.ReadinessScore) {
		return fmt.Errorf("readiness score %d out of range", r.ReadinessScore)
	}
	for i, e := range r.OKRHistory {
		if e.CompletionFraction < 0 || e.CompletionFraction > 1 {
			return fmt.Errorf("okr %d completion %.2f out of range", i, e.CompletionFraction)
		}
		if e.Status != StatusCompleted && e.Status != StatusInProgress {
			return fmt.Errorf("okr %d has invalid status %q", i, e.Status)
		}
	}
	return nil
}

func inPercent(v int) bool {
	return v >= 0 && v <= 100
}

// sortMonths orders labels like "Month 2" before "Month 10", falling back to lexical order
func sortMonths(months []string) {
	sort.SliceStable(months, func(i, j int) bool {
		ni, okI := trailingNumber(months[i])
		nj, okJ := trailingNumber(months[j])
		if okI && okJ && ni != nj {
			return ni < nj
		}
		return months[i] < months[j]
	})
}

func trailingNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := len(s)
	start := end
	for start > 0 && unicode.IsDigit(rune(s[start-1])) {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
