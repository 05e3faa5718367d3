// internal/database/repository.go
package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/services"
)

// Store is the GORM-backed services.OnboardingStore.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(repo services.OnboardingRepository) error) error {
	return WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (s *Store) View(ctx context.Context, fn func(repo services.OnboardingRepository) error) error {
	return fn(&repository{db: s.db.WithContext(ctx)})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

type repository struct {
	db *gorm.DB
}

func (r *repository) FindApplication(uuid string) (*models.Application, error) {
	var app models.Application
	if err := r.db.Where("uuid = ?", uuid).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) CreateApplication(app *models.Application) error {
	return r.db.Create(app).Error
}

// UpdateCurrentStep never moves the pointer backwards, even when two
// submissions for one application race.
func (r *repository) UpdateCurrentStep(uuid string, step int) error {
	return r.db.Model(&models.Application{}).
		Where("uuid = ? AND current_step <= ?", uuid, step).
		Update("current_step", step).Error
}

func (r *repository) MarkCompleted(uuid string) error {
	return r.db.Model(&models.Application{}).
		Where("uuid = ?", uuid).
		Update("status", models.ApplicationStatusCompleted).Error
}

func (r *repository) FindFirmDetails(appID string) (*models.FirmDetails, error) {
	var details models.FirmDetails
	if err := r.db.Where("app_id = ?", appID).First(&details).Error; err != nil {
		return nil, err
	}
	return &details, nil
}

func (r *repository) UpsertFirmDetails(details *models.FirmDetails) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}},
		UpdateAll: true,
	}).Create(details).Error
}

func (r *repository) ListPersonnel(appID string, withChildren bool) ([]models.Personnel, error) {
	query := r.db.Where("app_id = ?", appID).Order("position")
	if withChildren {
		scoped := func(db *gorm.DB) *gorm.DB {
			return db.Where("app_id = ?", appID).Order("id")
		}
		query = query.
			Preload("EducationalQualifications", scoped).
			Preload("ProfessionalQualifications", scoped).
			Preload("ExperienceDetails", scoped)
	}

	var personnel []models.Personnel
	if err := query.Find(&personnel).Error; err != nil {
		return nil, err
	}
	return personnel, nil
}

// UpsertPersonnel inserts new roster rows and overwrites existing ones in
// place, keyed by personnel_id.
func (r *repository) UpsertPersonnel(roster []models.Personnel) error {
	if len(roster) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "personnel_id"}},
		UpdateAll: true,
	}).Create(&roster).Error
}

// DeletePersonnelFromPosition drops roster entries at or beyond position
// together with their qualifications and experience.
func (r *repository) DeletePersonnelFromPosition(appID string, position int) error {
	var ids []string
	if err := r.db.Model(&models.Personnel{}).
		Where("app_id = ? AND position >= ?", appID, position).
		Pluck("personnel_id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	children := []interface{}{
		&models.EducationalQualification{},
		&models.ProfessionalQualification{},
		&models.ExperienceDetail{},
	}
	for _, child := range children {
		if err := r.db.Where("app_id = ? AND personnel_id IN ?", appID, ids).Delete(child).Error; err != nil {
			return err
		}
	}

	if err := r.db.Model(&models.Attachment{}).
		Where("app_id = ? AND personnel_id IN ?", appID, ids).
		Update("personnel_id", nil).Error; err != nil {
		return err
	}

	return r.db.Where("app_id = ? AND personnel_id IN ?", appID, ids).Delete(&models.Personnel{}).Error
}

func (r *repository) ReplaceQualifications(appID, personnelID string, edu []models.EducationalQualification, prof []models.ProfessionalQualification) error {
	if err := r.db.Where("app_id = ? AND personnel_id = ?", appID, personnelID).
		Delete(&models.EducationalQualification{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("app_id = ? AND personnel_id = ?", appID, personnelID).
		Delete(&models.ProfessionalQualification{}).Error; err != nil {
		return err
	}

	if len(edu) > 0 {
		if err := r.db.Create(&edu).Error; err != nil {
			return err
		}
	}
	if len(prof) > 0 {
		if err := r.db.Create(&prof).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ReplaceExperience(appID, personnelID string, exp []models.ExperienceDetail) error {
	if err := r.db.Where("app_id = ? AND personnel_id = ?", appID, personnelID).
		Delete(&models.ExperienceDetail{}).Error; err != nil {
		return err
	}

	if len(exp) > 0 {
		return r.db.Create(&exp).Error
	}
	return nil
}

func (r *repository) FindBackground(appID string) (*models.BackgroundInformation, error) {
	var info models.BackgroundInformation
	if err := r.db.Where("app_id = ?", appID).First(&info).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *repository) UpsertBackground(info *models.BackgroundInformation) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}},
		UpdateAll: true,
	}).Create(info).Error
}

func (r *repository) CreateAttachments(attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return r.db.Create(&attachments).Error
}

var _ services.OnboardingStore = (*Store)(nil)
