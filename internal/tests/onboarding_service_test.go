package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/services"
)

func TestCorporateApplicationEndToEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	const appID = "acme-2024"

	result, err := e.service.ApplyStep(ctx, submission(appID, 0, "SAVE", firmDetails("Acme Consulting Pvt Ltd")))
	require.NoError(t, err)
	assert.Equal(t, 0, result.StepNumber)
	assert.Equal(t, "SUCCESS", result.Action)
	assert.Equal(t, models.ApplicationStatusInProgress, result.Status)

	app, ok := e.store.application(appID)
	require.True(t, ok)
	assert.Equal(t, models.AgentTypeCorporate, app.AgentType)
	firm, ok := e.store.firm(appID)
	require.True(t, ok)
	assert.Equal(t, "Acme Consulting Pvt Ltd", firm.FirmName)
	assert.Equal(t, "ABCDE1234F", firm.PanNumber)

	result, err = e.service.ApplyStep(ctx, submission(appID, 1, "SAVE", roster(
		person("Ravi Kumar", "ABCDE1234F"),
		person("Asha Rao", "PQRST6789K"),
	)))
	require.NoError(t, err)
	require.Len(t, result.PersonnelIDs, 2)
	assert.NotEqual(t, result.PersonnelIDs[0], result.PersonnelIDs[1])
	assert.Equal(t, 2, e.store.count("personnel"))
	ids := result.PersonnelIDs

	_, err = e.service.ApplyStep(ctx, submission(appID, 2, "SAVE", qualifications(ids[0], education("B.Com", 2001))))
	require.NoError(t, err)
	assert.Len(t, e.store.educationFor(ids[0]), 1)

	_, err = e.service.ApplyStep(ctx, submission(appID, 3, "SAVE", experience(ids[1])))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission(appID, 4, "SAVE", background()))
	require.NoError(t, err)

	final := submission(appID, 5, "SUBMIT", nil)
	final.Files = fileHeaders(t, fileUpload{"pan_card", "pan.pdf", "%PDF pan card"})
	result, err = e.service.ApplyStep(ctx, final)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusCompleted, result.Status)
	assert.Equal(t, 5, result.CurrentStep)
	assert.Equal(t, 1, result.Attachments)

	attachments := e.store.allAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "FINAL_ATTACHMENTS_pan_card", attachments[0].DocumentType)
	assert.Nil(t, attachments[0].PersonnelID)
	assert.Equal(t, "pan.pdf", attachments[0].Metadata["original_name"])
	assert.Equal(t, []string{attachments[0].FileName}, e.storedFiles(t, appID))

	app, _ = e.store.application(appID)
	assert.Equal(t, models.ApplicationStatusCompleted, app.Status)
}

func TestFirmDetailsAreUpserted(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("firm-1", 0, "SAVE", firmDetails("Acme Consulting")))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission("firm-1", 0, "SAVE", firmDetails("Acme Consulting Pvt Ltd")))
	require.NoError(t, err)

	assert.Equal(t, 1, e.store.count("firm_details"))
	firm, _ := e.store.firm("firm-1")
	assert.Equal(t, "Acme Consulting Pvt Ltd", firm.FirmName)
}

func TestQualificationsAreReplaced(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("quals-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	result, err := e.service.ApplyStep(ctx, submission("quals-1", 1, "SAVE", roster(
		person("Ravi Kumar", "ABCDE1234F"),
		person("Asha Rao", "PQRST6789K"),
	)))
	require.NoError(t, err)
	ravi, asha := result.PersonnelIDs[0], result.PersonnelIDs[1]

	_, err = e.service.ApplyStep(ctx, submission("quals-1", 2, "SAVE", qualifications(asha, education("M.Com", 2004))))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission("quals-1", 2, "SAVE", qualifications(ravi,
		education("B.Com", 2001),
		education("CA Inter", 2003),
	)))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission("quals-1", 2, "SAVE", qualifications(ravi, education("MBA", 2008))))
	require.NoError(t, err)

	rows := e.store.educationFor(ravi)
	require.Len(t, rows, 1)
	assert.Equal(t, "MBA", rows[0].Qualification)
	assert.Equal(t, 2008, rows[0].YearOfPassing)
	assert.Equal(t, "72.5", rows[0].MarksPercent.String())

	// Other people are untouched
	require.Len(t, e.store.educationFor(asha), 1)
	assert.Equal(t, 2, e.store.count("educational_qualifications"))
}

func TestCurrentStepNeverDecreases(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	const appID = "pointer-1"

	_, err := e.service.ApplyStep(ctx, submission(appID, 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	result, err := e.service.ApplyStep(ctx, submission(appID, 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F"))))
	require.NoError(t, err)
	id := result.PersonnelIDs[0]

	sequence := []*services.StepSubmission{
		submission(appID, 4, "SAVE", background()),
		submission(appID, 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F"))),
		submission(appID, 0, "SAVE", firmDetails("Acme Ltd")),
		submission(appID, 3, "SAVE", experience(id)),
		submission(appID, 2, "SAVE", qualifications(id, education("B.Com", 2001))),
	}
	highest := 1
	for _, sub := range sequence {
		result, err := e.service.ApplyStep(ctx, sub)
		require.NoError(t, err)
		if result.StepNumber > highest {
			highest = result.StepNumber
		}
		assert.Equal(t, highest, result.CurrentStep)

		app, _ := e.store.application(appID)
		assert.Equal(t, highest, app.CurrentStep)
	}
}

func TestUnknownStepLeavesStateUntouched(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("steps-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	before := e.store.counts()

	_, err = e.service.ApplyStep(ctx, submission("steps-1", 6, "SAVE", background()))
	assert.True(t, errors.Is(err, services.ErrInvalidStep))
	assert.Equal(t, before, e.store.counts())

	app, _ := e.store.application("steps-1")
	assert.Equal(t, 0, app.CurrentStep)
}

func TestInvalidPanCreatesNothing(t *testing.T) {
	e := newEngine(t)

	sub := submission("pan-1", 1, "SAVE", roster(person("Ravi Kumar", "abcde1234f")))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)

	_, err := e.service.ApplyStep(context.Background(), sub)
	require.True(t, errors.Is(err, services.ErrValidationFailed))

	stepErr, _ := services.AsStepError(err)
	require.Len(t, stepErr.Violations, 1)
	assert.Equal(t, "form_data.personnel[0].panNumber", stepErr.Violations[0].Field)
	assert.Equal(t, "pan", stepErr.Violations[0].Tag)

	assert.Equal(t, 0, e.store.count("personnel"))
	assert.Equal(t, 0, e.store.count("applications"))
}

func TestIndividualApplicantsSkipFirmStep(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	sub := submission("solo-1", 0, "SAVE", firmDetails("Acme"))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	_, err := e.service.ApplyStep(ctx, sub)
	assert.True(t, errors.Is(err, services.ErrInvalidStep))

	sub = submission("solo-1", 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F")))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	result, err := e.service.ApplyStep(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CurrentStep)

	_, err = e.service.ApplyStep(ctx, submission("solo-1", 0, "SAVE", firmDetails("Acme")))
	assert.True(t, errors.Is(err, services.ErrInvalidStep))
	assert.Equal(t, 0, e.store.count("firm_details"))

	result, err = e.service.ApplyStep(ctx, submission("solo-1", 5, "SUBMIT", nil))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusCompleted, result.Status)
}

func TestNewApplicationNeedsCategory(t *testing.T) {
	e := newEngine(t)

	_, err := e.service.ApplyStep(context.Background(), submission("fresh-1", 4, "SAVE", background()))
	assert.True(t, errors.Is(err, services.ErrUnknownApplication))
	assert.Equal(t, 0, e.store.count("applications"))
}

func TestCategoryIsImmutable(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("corp-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)

	sub := submission("corp-1", 4, "SAVE", background())
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	_, err = e.service.ApplyStep(ctx, sub)
	assert.True(t, errors.Is(err, services.ErrValidationFailed))
	assert.Equal(t, 0, e.store.count("background_information"))
}

func TestCompletedApplicationRejectsWrites(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("done-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission("done-1", 5, "SUBMIT", nil))
	require.NoError(t, err)

	_, err = e.service.ApplyStep(ctx, submission("done-1", 4, "SAVE", background()))
	assert.True(t, errors.Is(err, services.ErrApplicationCompleted))
	assert.Equal(t, 0, e.store.count("background_information"))

	sub := submission("done-1", 0, "SAVE", firmDetails("Acme"))
	sub.Files = fileHeaders(t, fileUpload{"registration", "reg.pdf", "%PDF"})
	_, err = e.service.ApplyStep(ctx, sub)
	assert.True(t, errors.Is(err, services.ErrApplicationCompleted))
	assert.Empty(t, e.store.allAttachments())
	assert.Empty(t, e.storedFiles(t, "done-1"))
}

func TestTerminalSaveKeepsApplicationOpen(t *testing.T) {
	e := newEngine(t)

	_, err := e.service.ApplyStep(context.Background(), submission("draft-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)

	_, err = e.service.ApplyStep(context.Background(), submission("draft-1", 5, "SAVE", nil))
	assert.True(t, errors.Is(err, services.ErrValidationFailed))

	app, _ := e.store.application("draft-1")
	assert.Equal(t, models.ApplicationStatusInProgress, app.Status)
}

func TestRosterResubmissionKeepsIdentities(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("roster-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	first, err := e.service.ApplyStep(ctx, submission("roster-1", 1, "SAVE", roster(
		person("Ravi Kumar", "ABCDE1234F"),
		person("Asha Rao", "PQRST6789K"),
	)))
	require.NoError(t, err)

	_, err = e.service.ApplyStep(ctx, submission("roster-1", 2, "SAVE", qualifications(first.PersonnelIDs[1], education("M.Com", 2004))))
	require.NoError(t, err)

	second, err := e.service.ApplyStep(ctx, submission("roster-1", 1, "SAVE", roster(person("Ravi K.", "ABCDE1234F"))))
	require.NoError(t, err)

	require.Len(t, second.PersonnelIDs, 1)
	assert.Equal(t, first.PersonnelIDs[0], second.PersonnelIDs[0])
	row, ok := e.store.personnelRow(first.PersonnelIDs[0])
	require.True(t, ok)
	assert.Equal(t, "Ravi K.", row.Name)

	_, ok = e.store.personnelRow(first.PersonnelIDs[1])
	assert.False(t, ok)
	assert.Equal(t, 0, e.store.count("educational_qualifications"))
}

func TestForeignPersonnelIsRejected(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("own-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission("own-2", 0, "SAVE", firmDetails("Other")))
	require.NoError(t, err)
	result, err := e.service.ApplyStep(ctx, submission("own-2", 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F"))))
	require.NoError(t, err)

	_, err = e.service.ApplyStep(ctx, submission("own-1", 2, "SAVE", qualifications(result.PersonnelIDs[0], education("B.Com", 2001))))
	assert.True(t, errors.Is(err, services.ErrPersistenceFailed))
	assert.Equal(t, 0, e.store.count("educational_qualifications"))

	app, _ := e.store.application("own-1")
	assert.Equal(t, 0, app.CurrentStep)
}

func TestFailedTransactionRemovesUploads(t *testing.T) {
	e := newEngine(t)
	e.store.failOn = "CreateAttachments"

	sub := submission("rollback-1", 0, "SAVE", firmDetails("Acme"))
	sub.Files = fileHeaders(t, fileUpload{"registration", "reg.pdf", "%PDF registration"})

	_, err := e.service.ApplyStep(context.Background(), sub)
	assert.True(t, errors.Is(err, services.ErrPersistenceFailed))

	assert.Empty(t, e.storedFiles(t, "rollback-1"))
	assert.Equal(t, 0, e.store.count("applications"))
	assert.Equal(t, 0, e.store.count("firm_details"))
}

func TestDeadlineIsReportedAsUnavailable(t *testing.T) {
	e := newEngine(t)
	e.store.failOn = "UpsertFirmDetails"
	e.store.failErr = context.DeadlineExceeded

	_, err := e.service.ApplyStep(context.Background(), submission("slow-1", 0, "SAVE", firmDetails("Acme")))
	assert.True(t, errors.Is(err, services.ErrUnavailable))
	assert.Equal(t, 0, e.store.count("applications"))
}

func TestPersonnelUploadsAreLinked(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	sub := submission("photos-1", 1, "SAVE", roster(
		person("Ravi Kumar", "ABCDE1234F"),
		person("Asha Rao", "PQRST6789K"),
	))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	sub.Files = fileHeaders(t,
		fileUpload{"personnel[0][photo]", "ravi.jpg", "jpeg bytes"},
		fileUpload{"personnel[1][id_proof]", "asha-id.png", "png bytes"},
	)

	result, err := e.service.ApplyStep(ctx, sub)
	require.NoError(t, err)
	require.Len(t, result.PersonnelIDs, 2)
	assert.Equal(t, 1, result.Attachments)
	assert.Len(t, e.storedFiles(t, "photos-1"), 2)

	ravi, _ := e.store.personnelRow(result.PersonnelIDs[0])
	assert.Regexp(t, `_ravi\.jpg$`, ravi.PhotoUpload)

	attachments := e.store.allAttachments()
	require.Len(t, attachments, 1)
	require.NotNil(t, attachments[0].PersonnelID)
	assert.Equal(t, result.PersonnelIDs[1], *attachments[0].PersonnelID)
	assert.Equal(t, "PERSONNEL_DETAILS_personnel[1][id_proof]", attachments[0].DocumentType)

	// A later roster without a photo keeps the stored one
	sub = submission("photos-1", 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F")))
	_, err = e.service.ApplyStep(ctx, sub)
	require.NoError(t, err)
	again, _ := e.store.personnelRow(result.PersonnelIDs[0])
	assert.Equal(t, ravi.PhotoUpload, again.PhotoUpload)

	// The dropped person's attachment survives without its link
	attachments = e.store.allAttachments()
	require.Len(t, attachments, 1)
	assert.Nil(t, attachments[0].PersonnelID)
}

func TestRejectedUploadStoresNothing(t *testing.T) {
	e := newEngine(t)

	sub := submission("upload-1", 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F")))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	sub.Files = fileHeaders(t, fileUpload{"personnel[0][photo]", "ravi.pdf", "%PDF"})

	_, err := e.service.ApplyStep(context.Background(), sub)
	assert.True(t, errors.Is(err, services.ErrFileRejected))
	assert.Empty(t, e.storedFiles(t, "upload-1"))
	assert.Equal(t, 0, e.store.count("applications"))
}

func TestApplicationIDFormat(t *testing.T) {
	e := newEngine(t)

	_, err := e.service.ApplyStep(context.Background(), submission("../etc", 0, "SAVE", firmDetails("Acme")))
	assert.True(t, errors.Is(err, services.ErrValidationFailed))

	assert.True(t, services.ValidApplicationID("3f2b8c1e-7d4a-4e8b-9c1a-2b3c4d5e6f70"))
	assert.False(t, services.ValidApplicationID(""))
	assert.False(t, services.ValidApplicationID("-leading-dash"))
}

func TestGetApplicationAssemblesSteps(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	const appID = "view-1"

	_, err := e.service.ApplyStep(ctx, submission(appID, 0, "SAVE", firmDetails("Acme Consulting Pvt Ltd")))
	require.NoError(t, err)
	result, err := e.service.ApplyStep(ctx, submission(appID, 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F"))))
	require.NoError(t, err)
	id := result.PersonnelIDs[0]
	_, err = e.service.ApplyStep(ctx, submission(appID, 2, "SAVE", qualifications(id, education("B.Com", 2001))))
	require.NoError(t, err)
	_, err = e.service.ApplyStep(ctx, submission(appID, 3, "SAVE", experience(id)))
	require.NoError(t, err)

	view, err := e.service.GetApplication(ctx, appID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AgentTypeCorporate, view.AgentType)
	assert.Equal(t, 3, view.CurrentStep)
	assert.Len(t, view.Steps, 4)
	for _, key := range []string{"0", "1", "4", "5"} {
		assert.Contains(t, view.Steps, key)
	}

	firm := view.Steps["0"].(map[string]interface{})["firmDetails"].(*services.FirmDetailsView)
	assert.Equal(t, "Acme Consulting Pvt Ltd", firm.FirmName)
	assert.Equal(t, "Mumbai", firm.CorrespondenceAddress.City)

	personnel := view.Steps["1"].(map[string]interface{})["personnel"].([]services.PersonnelView)
	require.Len(t, personnel, 1)
	assert.Equal(t, id, personnel[0].PersonnelID)
	assert.Equal(t, "1980-05-01", *personnel[0].DateOfBirth)
	require.Len(t, personnel[0].EducationalQualifications, 1)
	assert.Equal(t, 72.5, personnel[0].EducationalQualifications[0].MarksPercent)
	require.Len(t, personnel[0].ExperienceDetails, 1)
	assert.Equal(t, "2015-04-01", *personnel[0].ExperienceDetails[0].FromDate)
	assert.Equal(t, 4, *personnel[0].ExperienceDetails[0].MonthsInEmployment)

	assert.Nil(t, view.Steps["4"].(map[string]interface{})["backgroundInfo"])
}

func TestGetApplicationSingleStep(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("view-2", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)

	step := 2
	view, err := e.service.GetApplication(ctx, "view-2", &step)
	require.NoError(t, err)
	assert.Len(t, view.Steps, 1)
	assert.Contains(t, view.Steps, "1")

	step = 6
	_, err = e.service.GetApplication(ctx, "view-2", &step)
	assert.True(t, errors.Is(err, services.ErrNotFound))

	_, err = e.service.GetApplication(ctx, "missing", nil)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestGetApplicationForIndividual(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	sub := submission("view-3", 1, "SAVE", roster(person("Ravi Kumar", "ABCDE1234F")))
	sub.Envelope.AgentType = string(models.AgentTypeIndividual)
	_, err := e.service.ApplyStep(ctx, sub)
	require.NoError(t, err)

	view, err := e.service.GetApplication(ctx, "view-3", nil)
	require.NoError(t, err)
	assert.NotContains(t, view.Steps, "0")
	assert.Len(t, view.Steps, 3)

	step := 0
	_, err = e.service.GetApplication(ctx, "view-3", &step)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestPing(t *testing.T) {
	e := newEngine(t)
	assert.NoError(t, e.service.Ping(context.Background()))

	e.store.pingErr = context.DeadlineExceeded
	assert.True(t, errors.Is(e.service.Ping(context.Background()), services.ErrUnavailable))
}

func TestReadsRunUnderDeadline(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.service.ApplyStep(ctx, submission("reads-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)
	_, err = e.service.GetApplication(ctx, "reads-1", nil)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true}, e.store.viewDeadlines)
}

func TestExhaustedPoolIsReportedAsUnavailable(t *testing.T) {
	e := newEngine(t)
	_, err := e.service.ApplyStep(context.Background(), submission("pool-1", 0, "SAVE", firmDetails("Acme")))
	require.NoError(t, err)

	e.store.stallView = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.service.GetApplication(ctx, "pool-1", nil)
	assert.True(t, errors.Is(err, services.ErrUnavailable))

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.service.ApplyStep(ctx, submission("pool-1", 0, "SAVE", firmDetails("Acme Two")))
	assert.True(t, errors.Is(err, services.ErrUnavailable))
	firm, _ := e.store.firm("pool-1")
	assert.Equal(t, "Acme", firm.FirmName)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	e.store.stallView = false
	_, err = e.service.GetApplication(expired, "pool-1", nil)
	assert.True(t, errors.Is(err, services.ErrUnavailable))
}
