package model

import (
	"fmt"

	"nexus-ats/internal/apperr"
)

// stageTransitions is the adjacency list of the pipeline. Order matters: it is
// the order valid targets are reported in.
var stageTransitions = map[Stage][]Stage{
	StageApplied:   {StageScreening},
	StageScreening: {StageInterview, StageApplied},
	StageInterview: {StageOffer, StageScreening},
	StageOffer:     {StageHired, StageInterview},
	StageHired:     {},
}

// GetValidNextStages returns the stages reachable from stage. Unknown or
// empty input yields an empty list.
func GetValidNextStages(stage string) []Stage {
	next, ok := stageTransitions[Stage(stage)]
	if !ok {
		return []Stage{}
	}
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

// ValidateStageTransition allows from == to for every stage and otherwise
// requires to to be adjacent to from.
func ValidateStageTransition(from, to string) error {
	var fe fieldErrors
	fe.checkStage("fromStage", from)
	fe.checkStage("toStage", to)
	if err := fe.err(); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	next := stageTransitions[Stage(from)]
	if contains(next, Stage(to)) {
		return nil
	}

	valid := "none"
	if len(next) > 0 {
		valid = joinValues(next)
	}
	msg := fmt.Sprintf("Invalid stage transition from %s to %s. Valid next stages: %s", from, to, valid)
	e := apperr.Validation([]apperr.FieldError{{Field: "stage", Code: "STAGE_INVALID_TRANSITION", Message: msg}})
	e.Message = msg
	return e
}
