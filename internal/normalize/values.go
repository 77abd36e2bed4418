package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"okrdrift/internal/model"
)

// lookup walks a dotted path one object key at a time so keys are never read as gjson syntax
func lookup(root gjson.Result, path string) gjson.Result {
	cur := root
	for _, part := range strings.Split(path, ".") {
		if !cur.IsObject() {
			return gjson.Result{}
		}
		cur = cur.Get(gjson.Escape(part))
	}
	return cur
}

// first returns the first path whose value exists and passes extract
func first[T any](root gjson.Result, paths []string, extract func(gjson.Result) (T, bool)) (T, bool) {
	for _, p := range paths {
		v := lookup(root, p)
		if !v.Exists() {
			continue
		}
		if out, ok := extract(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

func firstOr[T any](root gjson.Result, paths []string, extract func(gjson.Result) (T, bool), def T) T {
	if v, ok := first(root, paths, extract); ok {
		return v
	}
	return def
}

// extended JSON wrappers produced by database-style serializers
func unwrapExtended(r gjson.Result) (gjson.Result, bool) {
	if !r.IsObject() {
		return r, false
	}
	for _, key := range []string{"$oid", "$date", "$numberLong", "$numberInt", "$numberDouble", "$numberDecimal"} {
		if v := r.Get(gjson.Escape(key)); v.Exists() {
			return v, true
		}
	}
	return r, false
}

func text(r gjson.Result) (string, bool) {
	if r.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(r.Str)
	return s, s != ""
}

func identifier(r gjson.Result) (string, bool) {
	if inner, ok := unwrapExtended(r); ok {
		return identifier(inner)
	}
	switch r.Type {
	case gjson.String:
		return text(r)
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			return r.Raw, true
		}
		if r.Num == math.Trunc(r.Num) && math.Abs(r.Num) < 1e15 {
			return strconv.FormatInt(int64(r.Num), 10), true
		}
		return strconv.FormatFloat(r.Num, 'f', -1, 64), true
	}
	return "", false
}

func number(r gjson.Result) (float64, bool) {
	if inner, ok := unwrapExtended(r); ok {
		if inner.Type == gjson.String {
			f, err := strconv.ParseFloat(strings.TrimSpace(inner.Str), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, false
			}
			return f, true
		}
		return number(inner)
	}
	if r.Type != gjson.Number {
		return 0, false
	}
	if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
		return 0, false
	}
	return r.Num, true
}

// percent reads an integer percentage; a value strictly between 0 and 1 is taken as a fraction
func percent(r gjson.Result) (int, bool) {
	v, ok := number(r)
	if !ok {
		return 0, false
	}
	if v > 0 && v < 1 {
		v *= 100
	}
	// clamp before converting so huge values cannot overflow int
	return clampPercent(int(math.Round(math.Max(0, math.Min(100, v))))), true
}

// fractionAsPercent reads a [0,1] fraction and returns it as an integer percentage
func fractionAsPercent(r gjson.Result) (int, bool) {
	f, ok := fraction(r)
	if !ok {
		return 0, false
	}
	return clampPercent(int(math.Round(f * 100))), true
}

func fraction(r gjson.Result) (float64, bool) {
	v, ok := number(r)
	if !ok {
		return 0, false
	}
	return math.Max(0, math.Min(1, v)), true
}

// percentAsFraction reads an integer percentage and returns it as a [0,1] fraction
func percentAsFraction(r gjson.Result) (float64, bool) {
	p, ok := percent(r)
	if !ok {
		return 0, false
	}
	return float64(p) / 100, true
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func timestamp(r gjson.Result) (time.Time, bool) {
	if inner, ok := unwrapExtended(r); ok {
		return timestamp(inner)
	}
	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return encodable(t.UTC())
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epoch(float64(ms))
		}
	case gjson.Number:
		return epoch(r.Num)
	}
	return time.Time{}, false
}

// epoch treats large values as milliseconds and small ones as seconds
func epoch(v float64) (time.Time, bool) {
	if math.Abs(v) >= 1e11 {
		if math.Abs(v) >= math.MaxInt64 {
			return time.Time{}, false
		}
		return encodable(time.UnixMilli(int64(v)).UTC())
	}
	sec, frac := math.Modf(v)
	return encodable(time.Unix(int64(sec), int64(frac*1e9)).UTC())
}

// encodable rejects instants JSON cannot represent (years outside 0..9999)
func encodable(t time.Time) (time.Time, bool) {
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func stringList(r gjson.Result) ([]string, bool) {
	if !r.IsArray() {
		return nil, false
	}
	out := []string{}
	for _, item := range r.Array() {
		if s, ok := text(item); ok {
			out = append(out, s)
			continue
		}
		if item.IsObject() {
			if s, ok := first(item, []string{"text", "recommendation", "title"}, text); ok {
				out = append(out, s)
			}
		}
	}
	return out, true
}

func driftLevel(r gjson.Result) (model.DriftLevel, bool) {
	s, ok := text(r)
	if !ok {
		return "", false
	}
	switch strings.ToLower(s) {
	case "low":
		return model.DriftLow, true
	case "medium", "moderate":
		return model.DriftMedium, true
	case "high", "severe":
		return model.DriftHigh, true
	}
	return "", false
}

func level(r gjson.Result) (model.Level, bool) {
	s, ok := text(r)
	if !ok {
		return "", false
	}
	switch model.Level(strings.ToLower(s)) {
	case model.LevelBeginner:
		return model.LevelBeginner, true
	case model.LevelIntermediate:
		return model.LevelIntermediate, true
	case model.LevelAdvanced:
		return model.LevelAdvanced, true
	}
	return "", false
}

func trend(r gjson.Result) (model.Trend, bool) {
	s, ok := text(r)
	if !ok {
		return "", false
	}
	switch strings.ToLower(s) {
	case "up", "rising", "improving", "increasing":
		return model.TrendUp, true
	case "down", "falling", "declining", "decreasing":
		return model.TrendDown, true
	case "stable", "flat", "steady":
		return model.TrendStable, true
	}
	return "", false
}

func okrStatus(r gjson.Result) (model.OKRStatus, bool) {
	s, ok := text(r)
	if !ok {
		return "", false
	}
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "completed", "complete", "done":
		return model.StatusCompleted, true
	case "in-progress", "inprogress", "active", "pending", "in progress":
		return model.StatusInProgress, true
	}
	return "", false
}

// pillarCode accepts a pillar code in any case or the pillar's long name
func pillarCode(r gjson.Result) (model.PillarCode, bool) {
	s, ok := text(r)
	if !ok {
		return "", false
	}
	return parsePillar(s)
}

func parsePillar(s string) (model.PillarCode, bool) {
	code := model.PillarCode(strings.ToUpper(strings.TrimSpace(s)))
	if model.IsPillar(code) {
		return code, true
	}
	for c, name := range model.PillarNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}
