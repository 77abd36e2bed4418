package model

import "time"

// ErrorKind classifies why a request to the analysis service did not produce a live report
type ErrorKind string

const (
	ErrorUnreachable ErrorKind = "unreachable"
	ErrorMalformed   ErrorKind = "malformed"
	ErrorNotFound    ErrorKind = "not_found"
	ErrorTimeout     ErrorKind = "timeout"
)

type OutcomeKind string

const (
	OutcomeLive     OutcomeKind = "live"
	OutcomeFallback OutcomeKind = "fallback"
	OutcomeFailed   OutcomeKind = "failed"
)

// RequestOutcome is the tagged result of a submission.
// Report is set for Live and Fallback; ErrorKind is set for Failed.
type RequestOutcome struct {
	Kind              OutcomeKind     `json:"kind"`
	Report            *AnalysisReport `json:"report,omitempty"`
	UsedSyntheticData bool            `json:"usedSyntheticData"`
	ErrorKind         ErrorKind       `json:"errorKind,omitempty"`
}

func Live(report AnalysisReport) RequestOutcome {
	return RequestOutcome{Kind: OutcomeLive, Report: &report}
}

func Fallback(report AnalysisReport) RequestOutcome {
	return RequestOutcome{Kind: OutcomeFallback, Report: &report, UsedSyntheticData: true}
}

func Failed(kind ErrorKind) RequestOutcome {
	return RequestOutcome{Kind: OutcomeFailed, ErrorKind: kind}
}

// Succeeded is true for Live and Fallback outcomes
func (o RequestOutcome) Succeeded() bool {
	return o.Kind != OutcomeFailed && o.Report != nil
}

type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthUnhealthy   HealthStatus = "unhealthy"
	HealthUnreachable HealthStatus = "unreachable"
)

// ProgressEvent is one stage of the narrated progress shown while a synthetic report is built
type ProgressEvent struct {
	Token    uint64 `json:"token"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"` // 0-100
}

// ErrorEvent is pushed when a submission ends in a Failed outcome
type ErrorEvent struct {
	Token     uint64    `json:"token"`
	ErrorKind ErrorKind `json:"errorKind"`
}

// OutcomeRecord is the archived diagnostic record of an applied submission
type OutcomeRecord struct {
	ID                string          `json:"id" bson:"_id,omitempty"`
	SessionID         string          `json:"sessionId" bson:"sessionId"`
	StudentID         string          `json:"studentId" bson:"studentId"`
	Token             uint64          `json:"token" bson:"token"`
	Kind              OutcomeKind     `json:"kind" bson:"kind"`
	UsedSyntheticData bool            `json:"usedSyntheticData" bson:"usedSyntheticData"`
	ErrorKind         ErrorKind       `json:"errorKind,omitempty" bson:"errorKind,omitempty"`
	Report            *AnalysisReport `json:"report,omitempty" bson:"report,omitempty"`
	CreatedAt         time.Time       `json:"createdAt" bson:"createdAt"`
}

// StudentProfile is the header information derived from a student's latest report
type StudentProfile struct {
	StudentID      string `json:"studentId"`
	Name           string `json:"name"`
	RegisterNumber string `json:"registerNumber"`
}
