package service

import (
	"strconv"
	"time"

	"okrdrift/internal/model"
	"okrdrift/internal/normalize"
)

// SyntheticReport builds the fallback report for a request, stamped with now
func SyntheticReport(studentID, goal string, level model.Level, now time.Time) model.AnalysisReport {
	return normalize.NewWithClock(func() time.Time { return now }).Normalize(syntheticPayload(studentID, goal, level))
}

// syntheticPayload is the fixed template used when the analysis service cannot produce a report.
// It uses the same nested shape the live service returns so it goes through the normalizer like
// any other payload. Only the request identity is filled in.
func syntheticPayload(studentID, goal string, level model.Level) map[string]interface{} {
	var id interface{} = studentID
	if n, err := strconv.ParseInt(studentID, 10, 64); err == nil {
		id = n
	}
	return map[string]interface{}{
		"student_info": map[string]interface{}{
			"id":   id,
			"name": "Student " + studentID,
		},
		"goal_analysis": map[string]interface{}{
			"quarterly_goal":  goal,
			"current_level":   string(level),
			"readiness_score": 62,
		},
		"drift_analysis": map[string]interface{}{
			"drift_level": "Medium",
			"reasoning":   "Recent objectives are spread across pillars that contribute only partly to the quarterly goal.",
			"flagged_transitions": []interface{}{
				map[string]interface{}{
					"from":             "SCD",
					"to":               "SRI",
					"reason":           "Skill-building objectives were replaced by community work for two cycles.",
					"suggested_action": "Pair the next community objective with a goal-related skill project.",
				},
				map[string]interface{}{
					"from":   "CLT",
					"to":     "CFC",
					"reason": "Coursework paused while a venture idea was explored.",
				},
			},
		},
		"pattern_analysis": "Explorer pattern: steady learning progress with periodic shifts toward new pillars before earlier objectives are completed.",
		"pillar_analysis": map[string]interface{}{
			"CLT":  map[string]interface{}{"score": 78, "focus": "Online courses", "completion": 80, "trend": "up"},
			"CFC":  map[string]interface{}{"score": 45, "focus": "Idea validation", "completion": 40, "trend": "stable"},
			"SCD":  map[string]interface{}{"score": 71, "focus": "Hands-on projects", "completion": 65, "trend": "down"},
			"IIPC": map[string]interface{}{"score": 38, "focus": "Industry connect", "completion": 30, "trend": "stable"},
			"SRI":  map[string]interface{}{"score": 56, "focus": "Community service", "completion": 60, "trend": "up"},
		},
		"okr_history": []interface{}{
			map[string]interface{}{"cycle": "Cycle 1", "pillar": "CLT", "objective": "Complete a foundations course", "completion_status": 0.95},
			map[string]interface{}{"cycle": "Cycle 2", "pillar": "SCD", "objective": "Build a portfolio project", "completion_status": 0.85},
			map[string]interface{}{"cycle": "Cycle 3", "pillar": "SRI", "objective": "Run a peer tutoring drive", "completion_status": 0.7},
			map[string]interface{}{"cycle": "Cycle 4", "pillar": "CFC", "objective": "Validate a product idea", "completion_status": 0.4},
		},
		"coaching_plan": map[string]interface{}{
			"goal_alignment":         "Partially aligned",
			"cross_pillar_synergies": []interface{}{"Turn SCD projects into IIPC showcase material", "Document CLT learning as SRI tutoring content"},
			"recommendations":        []interface{}{"Finish in-progress SCD objectives before starting new ones", "Add one IIPC objective that connects to the quarterly goal"},
			"quarterly_roadmap": map[string]interface{}{
				"Month 1": map[string]interface{}{
					"CLT": map[string]interface{}{
						"Learning": map[string]interface{}{
							"action":          "Complete an intermediate course related to the quarterly goal",
							"success_metrics": []interface{}{"Course certificate", "Weekly study log"},
						},
					},
				},
				"Month 2": map[string]interface{}{
					"SCD": map[string]interface{}{
						"Project": map[string]interface{}{
							"action":          "Ship one end-to-end project applying the course material",
							"success_metrics": []interface{}{"Public repository", "Demo recording"},
							"ideas":           []interface{}{"Automate a campus workflow", "Extend an earlier portfolio project"},
						},
					},
				},
				"Month 3": map[string]interface{}{
					"IIPC": map[string]interface{}{
						"Networking": map[string]interface{}{
							"action":          "Present the project to an industry mentor",
							"success_metrics": []interface{}{"One mentor session", "Written feedback"},
						},
					},
				},
			},
		},
	}
}
