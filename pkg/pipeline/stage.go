package pipeline

import (
	"fmt"
	"time"
)

// StageName identifies one of the eight fixed pipeline stages
type StageName string

const (
	StageVirusScan          StageName = "virus-scan"
	StageTextExtraction     StageName = "text-extraction"
	StagePIIDetection       StageName = "pii-detection"
	StageEntityRecognition  StageName = "entity-recognition"
	StageFrameworkMapping   StageName = "framework-mapping"
	StageGapAnalysis        StageName = "gap-analysis"
	StagePolicyRedlining    StageName = "policy-redlining"
	StageArtifactGeneration StageName = "artifact-generation"
)

// StageOrder is the fixed execution order of the pipeline. Stages never
// run out of this order and never re-enter once failed.
var StageOrder = []StageName{
	StageVirusScan,
	StageTextExtraction,
	StagePIIDetection,
	StageEntityRecognition,
	StageFrameworkMapping,
	StageGapAnalysis,
	StagePolicyRedlining,
	StageArtifactGeneration,
}

// StageStatus represents the lifecycle state of a single stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// String returns the string representation of the StageStatus.
func (s StageStatus) String() string { return string(s) }

// validateTransition checks whether a status transition is allowed,
// returning an error with both states when it is not.
func (s StageStatus) validateTransition(target StageStatus) error {
	if !s.isValidTransition(target) {
		return fmt.Errorf("invalid stage status transition from %s to %s", s, target)
	}
	return nil
}

// isValidTransition encodes the stage state machine:
// pending -> running -> (completed | failed). Completed and failed are
// terminal; a stage never returns to pending.
func (s StageStatus) isValidTransition(target StageStatus) bool {
	switch s {
	case StageStatusPending:
		return target == StageStatusRunning
	case StageStatusRunning:
		return target == StageStatusCompleted || target == StageStatusFailed
	case StageStatusCompleted, StageStatusFailed:
		return false
	default:
		return false
	}
}

// ProcessingStage tracks status, timing, and error detail for one stage
// of one run. Mutated only by the orchestrator through the tracker.
type ProcessingStage struct {
	Name        StageName   `json:"name"`
	Status      StageStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	Progress    int         `json:"progress"`
}

// stageTracker holds the per-run stage list and enforces the stage
// state machine. At most one stage is running at any instant.
type stageTracker struct {
	stages []ProcessingStage
	byName map[StageName]int
}

func newStageTracker() *stageTracker {
	t := &stageTracker{
		stages: make([]ProcessingStage, len(StageOrder)),
		byName: make(map[StageName]int, len(StageOrder)),
	}
	for i, name := range StageOrder {
		t.stages[i] = ProcessingStage{Name: name, Status: StageStatusPending}
		t.byName[name] = i
	}
	return t
}

func (t *stageTracker) get(name StageName) (*ProcessingStage, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", name)
	}
	return &t.stages[i], nil
}

// markRunning transitions a stage to running. It also rejects starting
// a stage while an earlier stage is still pending or running, which
// makes skipping a stage unrepresentable.
func (t *stageTracker) markRunning(name StageName) error {
	s, err := t.get(name)
	if err != nil {
		return err
	}
	if err := s.Status.validateTransition(StageStatusRunning); err != nil {
		return err
	}
	for i := 0; i < t.byName[name]; i++ {
		if t.stages[i].Status != StageStatusCompleted {
			return fmt.Errorf("cannot start stage %s: stage %s is %s", name, t.stages[i].Name, t.stages[i].Status)
		}
	}

	now := time.Now().UTC()
	s.Status = StageStatusRunning
	s.StartedAt = &now
	return nil
}

func (t *stageTracker) markCompleted(name StageName) error {
	s, err := t.get(name)
	if err != nil {
		return err
	}
	if err := s.Status.validateTransition(StageStatusCompleted); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.Status = StageStatusCompleted
	s.CompletedAt = &now
	s.Progress = 100
	return nil
}

func (t *stageTracker) markFailed(name StageName, stageErr error) error {
	s, err := t.get(name)
	if err != nil {
		return err
	}
	if err := s.Status.validateTransition(StageStatusFailed); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.Status = StageStatusFailed
	s.CompletedAt = &now
	if stageErr != nil {
		s.Error = stageErr.Error()
	}
	return nil
}

// snapshot returns a copy of the stage list for inclusion in results.
func (t *stageTracker) snapshot() []ProcessingStage {
	out := make([]ProcessingStage, len(t.stages))
	copy(out, t.stages)
	return out
}
