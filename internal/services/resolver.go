// internal/services/resolver.go
package services

import (
	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

const (
	FirmStep     = 0
	TerminalStep = 5
)

// StepRange is the inclusive range of step indices legal for a category.
type StepRange struct {
	First int
	Last  int
}

// Limit is the exclusive upper bound of the range.
func (r StepRange) Limit() int {
	return r.Last + 1
}

func (r StepRange) Count() int {
	return r.Last - r.First + 1
}

func (r StepRange) Contains(step int) bool {
	return step >= r.First && step <= r.Last
}

// StepRangeFor returns the legal steps for category. Only corporate
// applicants file firm details at step 0.
func StepRangeFor(category models.AgentType) StepRange {
	if category == models.AgentTypeCorporate {
		return StepRange{First: FirmStep, Last: TerminalStep}
	}
	return StepRange{First: FirmStep + 1, Last: TerminalStep}
}

// Resolve determines the category a submission for step runs under. app is
// nil when the application does not exist yet.
func Resolve(app *models.Application, requested models.AgentType, step int) (models.AgentType, error) {
	if requested != "" && !requested.Valid() {
		return "", validationFailed([]utils.ValidationError{{
			Field:   "agent_type",
			Tag:     "oneof",
			Message: "agent_type must be one of: INDIVIDUAL CORPORATE",
		}})
	}

	var category models.AgentType
	switch {
	case app != nil:
		if requested != "" && requested != app.AgentType {
			return "", validationFailed([]utils.ValidationError{{
				Field:   "agent_type",
				Tag:     "immutable",
				Message: "agent_type cannot change from " + string(app.AgentType),
			}})
		}
		category = app.AgentType
	case requested != "":
		category = requested
	case step == FirmStep:
		category = models.AgentTypeCorporate
	default:
		return "", newStepError(CodeUnknownApplication, "application has no category; submit agent_type or start at step %d", FirmStep)
	}

	if r := StepRangeFor(category); !r.Contains(step) {
		return "", newStepError(CodeInvalidStep, "step %d is outside %d..%d for %s applicants", step, r.First, r.Last, category)
	}
	return category, nil
}
