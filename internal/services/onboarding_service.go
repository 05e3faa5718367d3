// internal/services/onboarding_service.go
package services

import (
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/agency-onboarding/internal/config"
	"github.com/javajoker/agency-onboarding/internal/metrics"
	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

var applicationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,35}$`)

type OnboardingService struct {
	store     OnboardingStore
	storage   FileStorage
	router    *AttachmentRouter
	tracker   StateTracker
	txTimeout time.Duration
}

// StepSubmission is one write request as received by the transport.
type StepSubmission struct {
	RequestUUID string
	Envelope    StepEnvelope
	Files       map[string][]*multipart.FileHeader
}

type StepResult struct {
	StepNumber   int                      `json:"step_number"`
	Action       string                   `json:"action"`
	PersonnelIDs []string                 `json:"personnel_ids,omitempty"`
	CurrentStep  int                      `json:"current_step"`
	Status       models.ApplicationStatus `json:"status"`
	Attachments  int                      `json:"attachments_saved,omitempty"`
}

func NewOnboardingService(store OnboardingStore, storage FileStorage, cfg *config.Config) *OnboardingService {
	return &OnboardingService{
		store:     store,
		storage:   storage,
		router:    NewAttachmentRouter(cfg.Storage.MaxFileSize, cfg.Storage.MaxFiles),
		txTimeout: cfg.Database.TxDeadline(),
	}
}

// ValidApplicationID reports whether id can name an application. Ids are
// caller supplied and also used as a storage path segment.
func ValidApplicationID(id string) bool {
	return applicationIDPattern.MatchString(id)
}

// ApplyStep validates a step submission, stores its files and writes its
// data in one transaction. Files are removed again if the transaction
// does not commit.
func (s *OnboardingService) ApplyStep(ctx context.Context, sub *StepSubmission) (result *StepResult, err error) {
	start := time.Now()
	step := -1
	logger := logrus.WithField("request_uuid", sub.RequestUUID)
	defer func() {
		s.observe(logger, step, start, err)
	}()

	if !ValidApplicationID(sub.RequestUUID) {
		return nil, validationFailed([]utils.ValidationError{{
			Field:   "request_uuid",
			Tag:     "format",
			Message: "request_uuid must be 1-36 letters, digits, '-' or '_'",
		}})
	}

	step, err = ParseStepNumber(sub.Envelope.StepNumber)
	if err != nil {
		step = -1
		return nil, validationFailed([]utils.ValidationError{{Field: "step_number", Tag: "required", Message: err.Error()}})
	}
	contract, ok := ContractFor(step)
	if !ok {
		return nil, newStepError(CodeInvalidStep, "step %d does not exist", step)
	}
	requested := models.AgentType(sub.Envelope.AgentType)

	// Category and lifecycle checks run before anything is stored
	if err := s.view(ctx, func(repo OnboardingRepository) error {
		_, _, err := s.tracker.Check(repo, sub.RequestUUID, requested, step)
		return err
	}); err != nil {
		return nil, err
	}

	form, err := contract.Validate(&sub.Envelope)
	if err != nil {
		return nil, err
	}

	routed, err := s.router.Route(step, sub.Files, rosterSize(form))
	if err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, sub.RequestUUID, routed)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			removeAll(context.Background(), s.storage, stored)
		}
	}()

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	result = &StepResult{StepNumber: step, Action: "SUCCESS"}
	err = s.store.Transaction(txCtx, func(repo OnboardingRepository) error {
		app, err := s.tracker.Open(repo, sub.RequestUUID, requested, step)
		if err != nil {
			return err
		}

		ids, err := s.persist(repo, app.UUID, step, form, routed, stored)
		if err != nil {
			return err
		}
		result.PersonnelIDs = ids

		attachments, err := buildAttachments(app.UUID, step, form, ids, routed, stored)
		if err != nil {
			return err
		}
		if err := repo.CreateAttachments(attachments); err != nil {
			return err
		}
		result.Attachments = len(attachments)

		if err := s.tracker.Advance(repo, app, step, models.Action(sub.Envelope.Action)); err != nil {
			return err
		}
		result.CurrentStep = app.CurrentStep
		result.Status = app.Status
		return nil
	})
	if err != nil {
		if _, isStepErr := AsStepError(err); !isStepErr && txCtx.Err() != nil {
			return nil, &StepError{Code: CodeUnavailable, Message: "database unavailable", Err: err}
		}
		return nil, persistenceFailed(err)
	}
	committed = true

	for _, f := range stored {
		metrics.RecordUpload(contract.Uploads.Category, f.Size)
	}
	if result.Status == models.ApplicationStatusCompleted {
		metrics.RecordCompletion()
	}
	return result, nil
}

func (s *OnboardingService) persist(repo OnboardingRepository, appID string, step int, form interface{}, routed []RoutedFile, stored []*StoredFile) ([]string, error) {
	switch f := form.(type) {
	case *FirmDetailsForm:
		return nil, repo.UpsertFirmDetails(f.toModel(appID))

	case *PersonnelRosterForm:
		return s.persistRoster(repo, appID, f, routed, stored)

	case *QualificationsForm:
		if err := checkOwnership(repo, appID, f.personnelIDs()); err != nil {
			return nil, err
		}
		for i := range f.Personnel {
			edu, prof := f.Personnel[i].toModels(appID)
			if err := repo.ReplaceQualifications(appID, f.Personnel[i].PersonnelID, edu, prof); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case *ExperienceForm:
		if err := checkOwnership(repo, appID, f.personnelIDs()); err != nil {
			return nil, err
		}
		for i := range f.Personnel {
			if err := repo.ReplaceExperience(appID, f.Personnel[i].PersonnelID, f.Personnel[i].toModels(appID)); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case *BackgroundForm:
		return nil, repo.UpsertBackground(f.toModel(appID))

	case *AttachmentsForm, nil:
		// Terminal step data is the uploaded files
		return nil, nil
	}

	return nil, newStepError(CodeInvalidStep, "step %d has no write strategy", step)
}

// persistRoster upserts personnel by position. Positions that existed
// before keep their personnel_id; positions past the new roster length
// are removed with their child rows.
func (s *OnboardingService) persistRoster(repo OnboardingRepository, appID string, form *PersonnelRosterForm, routed []RoutedFile, stored []*StoredFile) ([]string, error) {
	existing, err := repo.ListPersonnel(appID, false)
	if err != nil {
		return nil, err
	}
	byPosition := make(map[int]models.Personnel, len(existing))
	for _, p := range existing {
		byPosition[p.Position] = p
	}

	photos := make(map[int]string)
	for i, f := range routed {
		if f.Photo {
			photos[f.PersonIndex] = stored[i].FileName
		}
	}

	roster := make([]models.Personnel, 0, len(form.Personnel))
	ids := make([]string, 0, len(form.Personnel))
	for i := range form.Personnel {
		id := uuid.New().String()
		previous, had := byPosition[i]
		if had {
			id = previous.PersonnelID
		}

		row := form.Personnel[i].toModel(appID, id, i)
		switch {
		case photos[i] != "":
			row.PhotoUpload = photos[i]
		case row.PhotoUpload == "" && had:
			row.PhotoUpload = previous.PhotoUpload
		}

		roster = append(roster, row)
		ids = append(ids, id)
	}

	if err := repo.DeletePersonnelFromPosition(appID, len(roster)); err != nil {
		return nil, err
	}
	if err := repo.UpsertPersonnel(roster); err != nil {
		return nil, err
	}
	return ids, nil
}

func checkOwnership(repo OnboardingRepository, appID string, ids []string) error {
	personnel, err := repo.ListPersonnel(appID, false)
	if err != nil {
		return err
	}
	owned := make(map[string]bool, len(personnel))
	for _, p := range personnel {
		owned[p.PersonnelID] = true
	}
	for _, id := range ids {
		if !owned[id] {
			return newStepError(CodePersistenceFailed, "personnel %s does not belong to application %s", id, appID)
		}
	}
	return nil
}

func (f *QualificationsForm) personnelIDs() []string {
	ids := make([]string, 0, len(f.Personnel))
	for _, p := range f.Personnel {
		ids = append(ids, p.PersonnelID)
	}
	return ids
}

func (f *ExperienceForm) personnelIDs() []string {
	ids := make([]string, 0, len(f.Personnel))
	for _, p := range f.Personnel {
		ids = append(ids, p.PersonnelID)
	}
	return ids
}

// buildAttachments turns stored files into attachment rows. Personnel
// photos live on the personnel row instead.
func buildAttachments(appID string, step int, form interface{}, rosterIDs []string, routed []RoutedFile, stored []*StoredFile) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(routed))
	for i, f := range routed {
		if f.Photo {
			continue
		}

		var personnelID *string
		if f.PersonIndex >= 0 {
			id := personnelIDAt(form, rosterIDs, f.PersonIndex)
			if id == "" {
				return nil, newStepError(CodePersistenceFailed, "field %s has no matching personnel", f.Field)
			}
			personnelID = &id
		}

		attachments = append(attachments, models.Attachment{
			AppID:        appID,
			PersonnelID:  personnelID,
			DocumentType: f.DocumentType,
			FileName:     stored[i].FileName,
			FilePath:     stored[i].Key,
			FileSize:     stored[i].Size,
			Metadata: models.JSONB{
				"original_name": f.Header.Filename,
				"content_type":  stored[i].ContentType,
				"form_field":    f.Field,
				"sha256":        stored[i].Checksum,
				"step":          step,
			},
		})
	}
	return attachments, nil
}

func personnelIDAt(form interface{}, rosterIDs []string, index int) string {
	switch f := form.(type) {
	case *PersonnelRosterForm:
		if index < len(rosterIDs) {
			return rosterIDs[index]
		}
	case *ExperienceForm:
		if index < len(f.Personnel) {
			return f.Personnel[index].PersonnelID
		}
	}
	return ""
}

func rosterSize(form interface{}) int {
	switch f := form.(type) {
	case *PersonnelRosterForm:
		return len(f.Personnel)
	case *ExperienceForm:
		return len(f.Personnel)
	}
	return NoRoster
}

func (s *OnboardingService) storeFiles(ctx context.Context, appID string, routed []RoutedFile) ([]*StoredFile, error) {
	stored := make([]*StoredFile, 0, len(routed))
	for _, f := range routed {
		file, err := s.storage.Save(ctx, appID, f.Header)
		if err != nil {
			removeAll(context.Background(), s.storage, stored)
			return nil, &StepError{Code: CodePersistenceFailed, Message: "failed to store " + f.Header.Filename, Err: err}
		}
		stored = append(stored, file)
	}
	return stored, nil
}

func (s *OnboardingService) observe(logger *logrus.Entry, step int, start time.Time, err error) {
	duration := time.Since(start)
	logger = logger.WithFields(logrus.Fields{
		"step":     step,
		"duration": duration.String(),
	})

	outcome := "success"
	if err != nil {
		outcome = string(CodePersistenceFailed)
		if stepErr, ok := AsStepError(err); ok {
			outcome = string(stepErr.Code)
		}
		entry := logger.WithError(err).WithField("code", outcome)
		switch outcome {
		case string(CodePersistenceFailed), string(CodeUnavailable):
			entry.Error("Step submission failed")
		default:
			entry.Warn("Step submission rejected")
		}
	} else {
		logger.Info("Step applied")
	}

	if _, known := ContractFor(step); known {
		metrics.RecordStep(step, outcome, duration)
	}
}

// view runs fn on a read snapshot bounded by the transaction deadline.
func (s *OnboardingService) view(ctx context.Context, fn func(repo OnboardingRepository) error) error {
	viewCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := s.store.View(viewCtx, fn)
	if err == nil {
		return nil
	}
	if _, isStepErr := AsStepError(err); !isStepErr && viewCtx.Err() != nil {
		return &StepError{Code: CodeUnavailable, Message: "database unavailable", Err: err}
	}
	return persistenceFailed(err)
}

// Ping reports database reachability.
func (s *OnboardingService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &StepError{Code: CodeUnavailable, Message: "database ping timed out", Err: err}
		}
		return err
	}
	return nil
}
