// internal/services/assembler.go
package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/javajoker/agency-onboarding/internal/models"
)

// ApplicationView is the read model of one application. Steps are keyed
// by their index as a string.
type ApplicationView struct {
	RequestUUID string                   `json:"request_uuid"`
	AgentType   models.AgentType         `json:"agent_type"`
	CurrentStep int                      `json:"current_step"`
	Status      models.ApplicationStatus `json:"status"`
	Steps       map[string]interface{}   `json:"steps"`
}

type AddressView struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

type FirmDetailsView struct {
	FirmName              string      `json:"firmName"`
	RegistrationNumber    string      `json:"registrationNumber"`
	PanNumber             string      `json:"panNumber"`
	GstNumber             string      `json:"gstNumber"`
	CorrespondenceAddress AddressView `json:"correspondenceAddress"`
	PermanentAddress      AddressView `json:"permanentAddress"`
	EmailAddress          string      `json:"emailAddress"`
	MobileNumber          string      `json:"mobileNumber"`
}

type PersonnelView struct {
	PersonnelID                  string                          `json:"personnel_id"`
	Title                        string                          `json:"title"`
	Name                         string                          `json:"name"`
	FatherName                   string                          `json:"fatherName"`
	MotherName                   string                          `json:"motherName"`
	DateOfBirth                  *string                         `json:"dateOfBirth"`
	WealthTaxRegistration        models.YesNo                    `json:"wealthTaxRegistration"`
	WealthTaxRegistrationDetails string                          `json:"wealthTaxRegistrationDetails"`
	IbbiRegistrationNumber       string                          `json:"ibbiRegistrationNumber"`
	PanNumber                    string                          `json:"panNumber"`
	AadhaarNumber                string                          `json:"aadhaarNumber"`
	PassportNumber               string                          `json:"passportNumber"`
	GstNumber                    string                          `json:"gstNumber"`
	CorrespondenceAddress        AddressView                     `json:"correspondenceAddress"`
	PermanentAddress             AddressView                     `json:"permanentAddress"`
	EmailAddress                 string                          `json:"emailAddress"`
	MobileNumber                 string                          `json:"mobileNumber"`
	PhotoUpload                  string                          `json:"photoUpload"`
	IsSameAsCorrespondence       bool                            `json:"isSameAsCorrespondence"`
	EducationalQualifications    []EducationalQualificationView  `json:"educationalQualifications"`
	ProfessionalQualifications   []ProfessionalQualificationView `json:"professionalQualifications"`
	ExperienceDetails            []ExperienceDetailView          `json:"experienceDetails"`
}

type EducationalQualificationView struct {
	Qualification     string  `json:"qualification"`
	YearOfPassing     int     `json:"yearOfPassing"`
	MarksPercent      float64 `json:"marksPercent"`
	GradeClass        string  `json:"gradeClass"`
	UniversityCollege string  `json:"universityCollege"`
	Remarks           string  `json:"remarks"`
}

type ProfessionalQualificationView struct {
	Qualification   string  `json:"qualification"`
	Institute       string  `json:"institute"`
	MembershipNo    string  `json:"membershipNo"`
	DateOfEnrolment *string `json:"dateOfEnrolment"`
	Remarks         string  `json:"remarks"`
}

type ExperienceDetailView struct {
	CurrentlyInPracticeOrEmployment string   `json:"currentlyInPracticeOrEmployment"`
	YearsInPractice                 *int     `json:"yearsInPractice"`
	PracticeAddress                 string   `json:"practiceAddress"`
	YearsInEmployment               *int     `json:"yearsInEmployment"`
	MonthsInEmployment              *int     `json:"monthsInEmployment"`
	EvidenceFiles                   []string `json:"evidenceFiles"`
	FromDate                        *string  `json:"fromDate"`
	ToDate                          *string  `json:"toDate"`
	EmploymentOrPractice            string   `json:"employmentOrPractice"`
	EmployerNameAndDesignation      string   `json:"employerNameAndDesignation"`
	PracticeExperience              string   `json:"practiceExperience"`
	AreaOfWork                      string   `json:"areaOfWork"`
}

type BackgroundView struct {
	ConvictedOffence            models.YesNo `json:"convictedOffence"`
	ConvictedOffenceDetails     string       `json:"convictedOffenceDetails"`
	CriminalProceedings         models.YesNo `json:"criminalProceedings"`
	CriminalProceedingsDetails  string       `json:"criminalProceedingsDetails"`
	UndischargedBankrupt        models.YesNo `json:"undischargedBankrupt"`
	UndischargedBankruptDetails string       `json:"undischargedBankruptDetails"`
	AdditionalInformation       string       `json:"additionalInformation"`
}

// personnelBlock is the step key steps 1 to 3 are reported under.
const personnelBlock = 1

// GetApplication assembles the stored application. With step set only
// that step's block is returned; steps 1 to 3 share the personnel block.
func (s *OnboardingService) GetApplication(ctx context.Context, id string, step *int) (*ApplicationView, error) {
	var view *ApplicationView
	err := s.view(ctx, func(repo OnboardingRepository) error {
		app, err := repo.FindApplication(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newStepError(CodeNotFound, "application %s not found", id)
			}
			return err
		}

		r := StepRangeFor(app.AgentType)
		var wanted []int
		if step == nil {
			for i := r.First; i <= r.Last; i++ {
				if i == personnelBlock+1 || i == personnelBlock+2 {
					continue
				}
				wanted = append(wanted, i)
			}
		} else {
			if !r.Contains(*step) {
				return newStepError(CodeNotFound, "step %d does not exist for %s applicants", *step, app.AgentType)
			}
			wanted = []int{*step}
		}

		view = &ApplicationView{
			RequestUUID: app.UUID,
			AgentType:   app.AgentType,
			CurrentStep: app.CurrentStep,
			Status:      app.Status,
			Steps:       make(map[string]interface{}, len(wanted)),
		}
		for _, i := range wanted {
			key, block, err := assembleStep(repo, app.UUID, i)
			if err != nil {
				return err
			}
			view.Steps[key] = block
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func assembleStep(repo OnboardingRepository, appID string, step int) (string, interface{}, error) {
	switch step {
	case FirmStep:
		details, err := repo.FindFirmDetails(appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "0", map[string]interface{}{"firmDetails": nil}, nil
		}
		if err != nil {
			return "", nil, err
		}
		return "0", map[string]interface{}{"firmDetails": firmDetailsView(details)}, nil

	case 1, 2, 3:
		personnel, err := repo.ListPersonnel(appID, true)
		if err != nil {
			return "", nil, err
		}
		views := make([]PersonnelView, 0, len(personnel))
		for i := range personnel {
			views = append(views, personnelView(&personnel[i]))
		}
		return strconv.Itoa(personnelBlock), map[string]interface{}{"personnel": views}, nil

	case 4:
		info, err := repo.FindBackground(appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "4", map[string]interface{}{"backgroundInfo": nil}, nil
		}
		if err != nil {
			return "", nil, err
		}
		return "4", map[string]interface{}{"backgroundInfo": backgroundView(info)}, nil

	case TerminalStep:
		// Attachments are not reconstructed into the read view
		return "5", map[string]interface{}{"attachments": map[string]interface{}{}}, nil
	}
	return "", nil, newStepError(CodeNotFound, "step %d does not exist", step)
}

func addressView(a models.Address) AddressView {
	return AddressView{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Pincode:      a.Pincode,
	}
}

func firmDetailsView(d *models.FirmDetails) *FirmDetailsView {
	return &FirmDetailsView{
		FirmName:              d.FirmName,
		RegistrationNumber:    d.RegistrationNumber,
		PanNumber:             d.PanNumber,
		GstNumber:             d.GstNumber,
		CorrespondenceAddress: addressView(d.CorrespondenceAddress),
		PermanentAddress:      addressView(d.PermanentAddress),
		EmailAddress:          d.EmailAddress,
		MobileNumber:          d.MobileNumber,
	}
}

func personnelView(p *models.Personnel) PersonnelView {
	view := PersonnelView{
		PersonnelID:                  p.PersonnelID,
		Title:                        p.Title,
		Name:                         p.Name,
		FatherName:                   p.FatherName,
		MotherName:                   p.MotherName,
		DateOfBirth:                  formatDate(p.DateOfBirth),
		WealthTaxRegistration:        p.WealthTaxRegistration,
		WealthTaxRegistrationDetails: p.WealthTaxRegistrationDetails,
		IbbiRegistrationNumber:       p.IbbiRegistrationNumber,
		PanNumber:                    p.PanNumber,
		AadhaarNumber:                p.AadhaarNumber,
		PassportNumber:               p.PassportNumber,
		GstNumber:                    p.GstNumber,
		CorrespondenceAddress:        addressView(p.CorrespondenceAddress),
		PermanentAddress:             addressView(p.PermanentAddress),
		EmailAddress:                 p.EmailAddress,
		MobileNumber:                 p.MobileNumber,
		PhotoUpload:                  p.PhotoUpload,
		IsSameAsCorrespondence:       p.IsSameAsCorrespondence,
		EducationalQualifications:    make([]EducationalQualificationView, 0, len(p.EducationalQualifications)),
		ProfessionalQualifications:   make([]ProfessionalQualificationView, 0, len(p.ProfessionalQualifications)),
		ExperienceDetails:            make([]ExperienceDetailView, 0, len(p.ExperienceDetails)),
	}

	for _, q := range p.EducationalQualifications {
		marks, _ := q.MarksPercent.Float64()
		view.EducationalQualifications = append(view.EducationalQualifications, EducationalQualificationView{
			Qualification:     q.Qualification,
			YearOfPassing:     q.YearOfPassing,
			MarksPercent:      marks,
			GradeClass:        q.GradeClass,
			UniversityCollege: q.UniversityCollege,
			Remarks:           q.Remarks,
		})
	}
	for _, q := range p.ProfessionalQualifications {
		view.ProfessionalQualifications = append(view.ProfessionalQualifications, ProfessionalQualificationView{
			Qualification:   q.Qualification,
			Institute:       q.Institute,
			MembershipNo:    q.MembershipNo,
			DateOfEnrolment: formatDate(q.DateOfEnrolment),
			Remarks:         q.Remarks,
		})
	}
	for _, e := range p.ExperienceDetails {
		evidence := []string(e.EvidenceFiles)
		if evidence == nil {
			evidence = []string{}
		}
		view.ExperienceDetails = append(view.ExperienceDetails, ExperienceDetailView{
			CurrentlyInPracticeOrEmployment: e.CurrentlyInPracticeOrEmployment,
			YearsInPractice:                 e.YearsInPractice,
			PracticeAddress:                 e.PracticeAddress,
			YearsInEmployment:               e.YearsInEmployment,
			MonthsInEmployment:              e.MonthsInEmployment,
			EvidenceFiles:                   evidence,
			FromDate:                        formatDate(e.FromDate),
			ToDate:                          formatDate(e.ToDate),
			EmploymentOrPractice:            e.EmploymentOrPractice,
			EmployerNameAndDesignation:      e.EmployerNameAndDesignation,
			PracticeExperience:              e.PracticeExperience,
			AreaOfWork:                      e.AreaOfWork,
		})
	}
	return view
}

func backgroundView(b *models.BackgroundInformation) *BackgroundView {
	return &BackgroundView{
		ConvictedOffence:            b.ConvictedOffence,
		ConvictedOffenceDetails:     b.ConvictedOffenceDetails,
		CriminalProceedings:         b.CriminalProceedings,
		CriminalProceedingsDetails:  b.CriminalProceedingsDetails,
		UndischargedBankrupt:        b.UndischargedBankrupt,
		UndischargedBankruptDetails: b.UndischargedBankruptDetails,
		AdditionalInformation:       b.AdditionalInformation,
	}
}

func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(dateLayout)
	return &s
}
