package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"okrdrift/internal/model"
)

func transitions(r gjson.Result) ([]model.FlaggedTransition, bool) {
	if !r.IsArray() {
		return nil, false
	}
	out := []model.FlaggedTransition{}
	for _, item := range r.Array() {
		if !item.IsObject() {
			continue
		}
		out = append(out, model.FlaggedTransition{
			From:            firstOr(item, transitionFromKeys, text, ""),
			To:              firstOr(item, transitionToKeys, text, ""),
			Reason:          firstOr(item, transitionReasonKeys, text, ""),
			SuggestedAction: firstOr(item, transitionActionKeys, text, ""),
		})
	}
	return out, true
}

func defaultPillar() model.PillarScore {
	return model.PillarScore{Trend: model.TrendStable}
}

// pillarAnalysis always yields exactly the five fixed pillars
func pillarAnalysis(root gjson.Result) map[model.PillarCode]model.PillarScore {
	out := make(map[model.PillarCode]model.PillarScore, len(model.Pillars))
	for _, p := range model.Pillars {
		out[p] = defaultPillar()
	}

	container, ok := first(root, pillarAnalysisPaths, func(r gjson.Result) (gjson.Result, bool) {
		return r, r.IsObject() || r.IsArray()
	})
	if !ok {
		return out
	}

	if container.IsArray() {
		for _, item := range container.Array() {
			code, ok := first(item, []string{"pillar", "code"}, pillarCode)
			if !ok {
				continue
			}
			out[code] = pillarScore(item)
		}
		return out
	}

	container.ForEach(func(key, value gjson.Result) bool {
		if code, ok := parsePillar(key.String()); ok {
			out[code] = pillarScore(value)
		}
		return true
	})
	return out
}

func pillarScore(r gjson.Result) model.PillarScore {
	ps := defaultPillar()
	if score, ok := percent(r); ok {
		// bare number: {"CLT": 85}
		ps.Score = score
		return ps
	}
	if !r.IsObject() {
		return ps
	}
	ps.Score = firstOr(r, pillarScoreKeys, percent, 0)
	ps.Focus = firstOr(r, pillarFocusKeys, text, "")
	if c, ok := first(r, pillarCompletionKeys, percent); ok {
		ps.Completion = c
	} else {
		ps.Completion = firstOr(r, pillarFractionKeys, fractionAsPercent, 0)
	}
	ps.Trend = firstOr(r, pillarTrendKeys, trend, model.TrendStable)
	return ps
}

// okrHistory drops entries whose pillar is not one of the five fixed codes
func okrHistory(r gjson.Result) ([]model.OKREntry, bool) {
	if !r.IsArray() {
		return nil, false
	}
	out := []model.OKREntry{}
	for _, item := range r.Array() {
		if !item.IsObject() {
			continue
		}
		code, ok := first(item, okrPillarKeys, pillarCode)
		if !ok {
			continue
		}
		frac, ok := first(item, okrFractionKeys, fraction)
		if !ok {
			frac = firstOr(item, okrPercentKeys, percentAsFraction, 0)
		}
		out = append(out, model.OKREntry{
			Cycle:              firstOr(item, okrCycleKeys, identifier, ""),
			Pillar:             code,
			Objective:          firstOr(item, okrObjectiveKeys, text, ""),
			CompletionFraction: frac,
			Status:             firstOr(item, okrStatusKeys, okrStatus, model.StatusFromFraction(frac)),
		})
	}
	return out, true
}

func roadmap(r gjson.Result) (model.Roadmap, bool) {
	if !r.IsObject() {
		return nil, false
	}
	out := model.Roadmap{}
	r.ForEach(func(month, pillars gjson.Result) bool {
		label := strings.TrimSpace(month.String())
		if label == "" || !pillars.IsObject() {
			return true
		}
		byPillar := map[model.PillarCode]map[string]model.RoadmapItem{}
		pillars.ForEach(func(pillar, okrs gjson.Result) bool {
			code, ok := parsePillar(pillar.String())
			if !ok || !okrs.IsObject() {
				return true
			}
			items := map[string]model.RoadmapItem{}
			okrs.ForEach(func(okrType, details gjson.Result) bool {
				name := strings.TrimSpace(okrType.String())
				if name == "" {
					return true
				}
				if item, ok := roadmapItem(details); ok {
					items[name] = item
				}
				return true
			})
			byPillar[code] = items
			return true
		})
		out[label] = byPillar
		return true
	})
	return out, true
}

func roadmapItem(r gjson.Result) (model.RoadmapItem, bool) {
	if s, ok := text(r); ok {
		return model.RoadmapItem{Action: s}, true
	}
	if !r.IsObject() {
		return model.RoadmapItem{}, false
	}
	item := model.RoadmapItem{
		Action:         firstOr(r, itemActionKeys, text, ""),
		SuccessMetrics: nonEmpty(firstOr(r, itemMetricsKeys, stringList, nil)),
		Ideas:          nonEmpty(firstOr(r, itemIdeasKeys, lines, nil)),
	}
	if recs, ok := first(r, itemRecommendationsKeys, recommendations); ok && len(recs) > 0 {
		item.Recommendations = recs
	}
	return item, true
}

func recommendations(r gjson.Result) ([]model.Recommendation, bool) {
	if !r.IsArray() {
		return nil, false
	}
	out := []model.Recommendation{}
	for _, rec := range r.Array() {
		if !rec.IsObject() {
			continue
		}
		out = append(out, model.Recommendation{
			Title:       firstOr(rec, recTitleKeys, text, ""),
			URL:         firstOr(rec, recURLKeys, text, ""),
			Description: firstOr(rec, recDescriptionKeys, text, ""),
		})
	}
	return out, true
}

// lines accepts a string list or a single newline-separated string
func lines(r gjson.Result) ([]string, bool) {
	if s, ok := text(r); ok {
		out := []string{}
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		return out, true
	}
	return stringList(r)
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
