// internal/services/state_tracker.go
package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/javajoker/agency-onboarding/internal/models"
)

// StateTracker owns an application's step pointer and lifecycle status.
type StateTracker struct{}

// Check resolves the category a write for step would run under without
// changing anything. app is nil when the application does not exist yet.
// Completed applications are rejected.
func (StateTracker) Check(repo OnboardingRepository, appID string, requested models.AgentType, step int) (*models.Application, models.AgentType, error) {
	app, err := repo.FindApplication(appID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		app = nil
	case err != nil:
		return nil, "", err
	}

	category, err := Resolve(app, requested, step)
	if err != nil {
		return nil, "", err
	}
	if app != nil && app.IsCompleted() {
		return nil, "", newStepError(CodeApplicationCompleted, "application %s is already completed", appID)
	}
	return app, category, nil
}

// Open returns the application a write runs against, creating it with the
// resolved category and step as the starting pointer when absent.
func (t StateTracker) Open(repo OnboardingRepository, appID string, requested models.AgentType, step int) (*models.Application, error) {
	app, category, err := t.Check(repo, appID, requested, step)
	if err != nil {
		return nil, err
	}
	if app != nil {
		return app, nil
	}

	app = &models.Application{
		UUID:        appID,
		AgentType:   category,
		CurrentStep: step,
		Status:      models.ApplicationStatusInProgress,
	}
	if err := repo.CreateApplication(app); err != nil {
		return nil, err
	}
	return app, nil
}

// Advance moves the pointer forward to step and completes the application
// on a terminal SUBMIT. The pointer never moves backward.
func (StateTracker) Advance(repo OnboardingRepository, app *models.Application, step int, action models.Action) error {
	if step > app.CurrentStep {
		if err := repo.UpdateCurrentStep(app.UUID, step); err != nil {
			return err
		}
		app.CurrentStep = step
	}

	if step == TerminalStep && action == models.ActionSubmit {
		if err := repo.MarkCompleted(app.UUID); err != nil {
			return err
		}
		app.Status = models.ApplicationStatusCompleted
	}
	return nil
}
