package normalize

// Ordered source paths per canonical field. The canonical camelCase path comes first so that a
// report fed back through Normalize resolves to itself; legacy conventions follow in the order
// the analysis service introduced them.
var (
	studentIDPaths      = []string{"studentId", "student_info.id", "student_id", "studentInfo.id", "student.id"}
	studentNamePaths    = []string{"studentName", "student_info.name", "student_name", "studentInfo.name", "student.name"}
	registerNumberPaths = []string{"registerNumber", "student_info.register_number", "register_number", "student_info.registerNumber"}

	quarterlyGoalPaths  = []string{"quarterlyGoal", "goal_analysis.quarterly_goal", "quarterly_goal", "goal"}
	currentLevelPaths   = []string{"currentLevel", "goal_analysis.current_level", "current_level", "level"}
	readinessScorePaths = []string{"readinessScore", "goal_analysis.readiness_score", "readiness_score"}

	patternSummaryPaths = []string{"patternSummary", "pattern_analysis", "trajectory_summary", "pattern_classification"}

	driftLevelPaths         = []string{"driftLevel", "drift_analysis.drift_level", "drift_report.drift_level", "drift_level", "drift_analysis.level"}
	driftReasoningPaths     = []string{"driftReasoning", "drift_analysis.reasoning", "drift_report.reasoning", "drift_reasoning"}
	flaggedTransitionsPaths = []string{"flaggedTransitions", "drift_analysis.flagged_transitions", "drift_report.flagged_transitions", "flagged_transitions"}

	pillarAnalysisPaths = []string{"pillarAnalysis", "pillar_analysis", "goal_analysis.pillar_analysis", "pillars"}
	okrHistoryPaths     = []string{"okrHistory", "okr_history", "goal_analysis.okr_history", "history"}

	coachingRecommendationsPaths = []string{"coachingRecommendations", "coaching_recommendations", "coaching_plan.recommendations", "coaching_plan.coaching_recommendations"}
	goalAlignmentPaths           = []string{"goalAlignment", "coaching_plan.goal_alignment", "coaching_recommendations.goal_alignment", "goal_alignment"}
	crossPillarSynergiesPaths    = []string{"crossPillarSynergies", "coaching_plan.cross_pillar_synergies", "coaching_recommendations.cross_pillar_synergies", "cross_pillar_synergies"}
	quarterlyRoadmapPaths        = []string{"quarterlyRoadmap", "coaching_plan.quarterly_roadmap", "coaching_recommendations.quarterly_roadmap", "quarterly_roadmap"}

	analysisTimestampPaths = []string{"analysisTimestamp", "analysis_date", "analysis_timestamp", "analysisDate", "created_at"}
	sourceIDPaths          = []string{"sourceId", "_id", "source_id", "report_id", "id"}
)

// Per-entry source keys, relative to the entry object
var (
	pillarScoreKeys      = []string{"score"}
	pillarFocusKeys      = []string{"focus", "focus_area"}
	pillarCompletionKeys = []string{"completion", "completion_percent"}
	pillarFractionKeys   = []string{"completion_status", "completionFraction"}
	pillarTrendKeys      = []string{"trend", "direction"}

	okrCycleKeys     = []string{"cycle", "period"}
	okrPillarKeys    = []string{"pillar", "pillar_code"}
	okrObjectiveKeys = []string{"objective", "title"}
	okrFractionKeys  = []string{"completionFraction", "completion_status"}
	okrPercentKeys   = []string{"completion", "completion_percent"}
	okrStatusKeys    = []string{"status"}

	transitionFromKeys   = []string{"from", "from_pillar"}
	transitionToKeys     = []string{"to", "to_pillar"}
	transitionReasonKeys = []string{"reason", "description"}
	transitionActionKeys = []string{"suggestedAction", "suggested_action"}

	itemActionKeys          = []string{"action"}
	itemRecommendationsKeys = []string{"recommendations", "resources"}
	itemMetricsKeys         = []string{"successMetrics", "success_metrics"}
	itemIdeasKeys           = []string{"ideas"}
	recTitleKeys            = []string{"title", "name"}
	recURLKeys              = []string{"url", "link"}
	recDescriptionKeys      = []string{"description", "summary"}
)

const (
	defaultQuarterlyGoal  = "Not specified"
	defaultPatternSummary = "No pattern analysis available"
	defaultDriftReasoning = "No drift analysis available"
	unknownStudentName    = "Unknown student"
)
