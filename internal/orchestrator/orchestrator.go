// Package orchestrator sequences one control-plane cycle:
// SENTINEL -> PLAN -> (terminal noop) | (TRAIN -> RELEASE). Each stage's
// record is persisted before the next stage runs, so a failed cycle always
// leaves a legible partial trail. Cycles never resume; the next trigger
// starts fresh, which is safe because sentinel, planner, and release gate
// are pure functions of current external state.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/frauddesk/control-plane/internal/events"
	"github.com/frauddesk/control-plane/internal/models"
	"github.com/frauddesk/control-plane/internal/planner"
	"github.com/frauddesk/control-plane/internal/policy"
	"github.com/frauddesk/control-plane/internal/release"
	"github.com/frauddesk/control-plane/internal/sentinel"
	"github.com/frauddesk/control-plane/internal/training"
)

type Config struct {
	PolicyPath string
	ReportDir  string
	DataDir    string
}

type Orchestrator struct {
	cfg      Config
	sentinel *sentinel.Sentinel
	trainer  training.Gateway
	gate     *release.Gate
	recorder events.Recorder
	logger   *log.Logger
}

func New(cfg Config, trainer training.Gateway, gate *release.Gate, recorder events.Recorder, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stdout, "[orchestrator] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:      cfg,
		sentinel: sentinel.New(cfg.ReportDir),
		trainer:  trainer,
		gate:     gate,
		recorder: recorder,
		logger:   logger,
	}
}

// CycleResult summarizes one completed pass through the state machine.
// Training and Release are nil when the plan terminated the cycle at PLAN.
type CycleResult struct {
	CycleID  string                 `json:"cycleId"`
	Report   models.IncidentReport  `json:"report"`
	Plan     models.ExecutionPlan   `json:"plan"`
	Training *models.TrainingResult `json:"training,omitempty"`
	Release  *models.ReleaseResult  `json:"release,omitempty"`
}

// RunCycle executes exactly one pass. External-call failures abort the
// remainder of the cycle; records written before the failure are preserved.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	cycleID := uuid.New().String()
	result := CycleResult{CycleID: cycleID}
	o.logger.Printf("cycle %s starting", cycleID)

	report, err := o.sentinel.Run()
	if err != nil {
		return result, fmt.Errorf("sentinel: %w", err)
	}
	result.Report = report
	if err := o.recorder.Record(ctx, cycleID, events.StageSentinelReport, report); err != nil {
		return result, fmt.Errorf("persist sentinel report: %w", err)
	}

	pol, err := policy.Load(o.cfg.PolicyPath)
	if err != nil {
		return result, fmt.Errorf("load policy: %w", err)
	}
	plan := planner.Plan(report, pol)
	result.Plan = plan
	if err := o.recorder.Record(ctx, cycleID, events.StageExecutionPlan, plan); err != nil {
		return result, fmt.Errorf("persist execution plan: %w", err)
	}

	// Transition guard: only the exact retrain action advances past PLAN.
	if plan.Action != models.ActionRetrainAndEvaluate {
		o.logger.Printf("cycle %s complete, no action taken (action=%s)", cycleID, plan.Action)
		return result, nil
	}

	reference := filepath.Join(o.cfg.DataDir, "reference.csv")
	trainRes, err := o.trainer.Train(ctx, reference)
	if err != nil {
		return result, fmt.Errorf("training: %w", err)
	}
	result.Training = &trainRes
	if err := o.recorder.Record(ctx, cycleID, events.StageTrainingResult, trainRes); err != nil {
		return result, fmt.Errorf("persist training result: %w", err)
	}

	relRes, err := o.gate.EvaluateAndMaybePromote(ctx, plan.Policy)
	if err != nil {
		return result, fmt.Errorf("release: %w", err)
	}
	result.Release = &relRes
	if err := o.recorder.Record(ctx, cycleID, events.StageReleaseResult, relRes); err != nil {
		return result, fmt.Errorf("persist release result: %w", err)
	}

	if relRes.Promoted {
		o.logger.Printf("cycle %s complete, model promoted to %s", cycleID, relRes.Stage)
	} else {
		o.logger.Printf("cycle %s complete, promotion blocked (reason=%s)", cycleID, relRes.Details.Reason)
	}
	return result, nil
}
