package service

import (
	"context"
	"time"

	"okrdrift/internal/model"
)

// Stage is one step of the narrated progress shown while a fallback report is prepared
type Stage struct {
	Name     string
	Progress int
}

// Stages mirrors the five steps of the analysis workflow
var Stages = []Stage{
	{Name: "extracting history", Progress: 20},
	{Name: "mapping trajectory", Progress: 40},
	{Name: "detecting drift", Progress: 60},
	{Name: "classifying pattern", Progress: 80},
	{Name: "generating coaching", Progress: 100},
}

// ProgressFunc receives narration events. It must not block.
type ProgressFunc func(model.ProgressEvent)

// Narrator emits Stages at a fixed cadence
type Narrator struct {
	cadence time.Duration
}

func NewNarrator(cadence time.Duration) *Narrator {
	if cadence < 0 {
		cadence = 0
	}
	return &Narrator{cadence: cadence}
}

// Run emits each stage after one cadence interval and returns once every stage was emitted or
// ctx is done. It reports whether the narration completed.
func (n *Narrator) Run(ctx context.Context, token uint64, sink ProgressFunc) bool {
	timer := time.NewTimer(n.cadence)
	defer timer.Stop()

	for i, st := range Stages {
		if i > 0 {
			timer.Reset(n.cadence)
		}
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return false
		}
		if sink != nil {
			sink(model.ProgressEvent{Token: token, Stage: st.Name, Progress: st.Progress})
		}
	}
	return true
}
