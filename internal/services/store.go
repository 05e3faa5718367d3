// internal/services/store.go
package services

import (
	"context"

	"github.com/javajoker/agency-onboarding/internal/models"
)

// OnboardingRepository is the set of row-level operations the engine needs.
// Implementations return gorm.ErrRecordNotFound for missing single rows.
type OnboardingRepository interface {
	FindApplication(uuid string) (*models.Application, error)
	CreateApplication(app *models.Application) error
	UpdateCurrentStep(uuid string, step int) error
	MarkCompleted(uuid string) error

	FindFirmDetails(appID string) (*models.FirmDetails, error)
	UpsertFirmDetails(details *models.FirmDetails) error

	ListPersonnel(appID string, withChildren bool) ([]models.Personnel, error)
	UpsertPersonnel(roster []models.Personnel) error
	DeletePersonnelFromPosition(appID string, position int) error

	ReplaceQualifications(appID, personnelID string, edu []models.EducationalQualification, prof []models.ProfessionalQualification) error
	ReplaceExperience(appID, personnelID string, exp []models.ExperienceDetail) error

	FindBackground(appID string) (*models.BackgroundInformation, error)
	UpsertBackground(info *models.BackgroundInformation) error

	CreateAttachments(attachments []models.Attachment) error
}

// OnboardingStore hands out repositories bound to one pooled connection.
// Transaction commits when fn returns nil and rolls back otherwise.
type OnboardingStore interface {
	Transaction(ctx context.Context, fn func(repo OnboardingRepository) error) error
	View(ctx context.Context, fn func(repo OnboardingRepository) error) error
	Ping(ctx context.Context) error
}
