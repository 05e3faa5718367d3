// internal/services/forms.go
package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/javajoker/agency-onboarding/internal/models"
)

// Step form_data shapes. Field names follow the client's camelCase keys.

type AddressForm struct {
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Pincode      string `json:"pincode" validate:"required,pincode"`
}

func (a *AddressForm) toModel() models.Address {
	if a == nil {
		return models.Address{}
	}
	return models.Address{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Pincode:      a.Pincode,
	}
}

// Step 0
type FirmDetailsForm struct {
	FirmName              string       `json:"firmName" validate:"required"`
	RegistrationNumber    string       `json:"registrationNumber" validate:"required"`
	PanNumber             string       `json:"panNumber" validate:"required,pan"`
	GstNumber             string       `json:"gstNumber"`
	CorrespondenceAddress *AddressForm `json:"correspondenceAddress" validate:"required"`
	PermanentAddress      *AddressForm `json:"permanentAddress" validate:"required"`
	EmailAddress          string       `json:"emailAddress" validate:"required,email"`
	MobileNumber          string       `json:"mobileNumber" validate:"required,mobile"`
}

func (f *FirmDetailsForm) toModel(appID string) *models.FirmDetails {
	return &models.FirmDetails{
		AppID:                 appID,
		FirmName:              f.FirmName,
		RegistrationNumber:    f.RegistrationNumber,
		PanNumber:             f.PanNumber,
		GstNumber:             f.GstNumber,
		CorrespondenceAddress: f.CorrespondenceAddress.toModel(),
		PermanentAddress:      f.PermanentAddress.toModel(),
		EmailAddress:          f.EmailAddress,
		MobileNumber:          f.MobileNumber,
	}
}

// Step 1
type PersonnelRosterForm struct {
	Personnel []PersonnelForm `json:"personnel" validate:"required,min=1,dive"`
}

type PersonnelForm struct {
	Title                        string       `json:"title" validate:"required"`
	Name                         string       `json:"name" validate:"required"`
	FatherName                   string       `json:"fatherName"`
	MotherName                   string       `json:"motherName"`
	DateOfBirth                  *time.Time   `json:"dateOfBirth" validate:"required"`
	WealthTaxRegistration        string       `json:"wealthTaxRegistration" validate:"omitempty,oneof=Yes No"`
	WealthTaxRegistrationDetails string       `json:"wealthTaxRegistrationDetails"`
	IbbiRegistrationNumber       string       `json:"ibbiRegistrationNumber"`
	PanNumber                    string       `json:"panNumber" validate:"required,pan"`
	AadhaarNumber                string       `json:"aadhaarNumber" validate:"omitempty,aadhaar"`
	PassportNumber               string       `json:"passportNumber"`
	GstNumber                    string       `json:"gstNumber"`
	CorrespondenceAddress        *AddressForm `json:"correspondenceAddress" validate:"required"`
	PermanentAddress             *AddressForm `json:"permanentAddress" validate:"required"`
	EmailAddress                 string       `json:"emailAddress" validate:"omitempty,email"`
	MobileNumber                 string       `json:"mobileNumber" validate:"omitempty,mobile"`
	PhotoUpload                  string       `json:"photoUpload"`
	IsSameAsCorrespondence       bool         `json:"isSameAsCorrespondence"`
}

func (f *PersonnelForm) toModel(appID, personnelID string, position int) models.Personnel {
	return models.Personnel{
		PersonnelID:                  personnelID,
		AppID:                        appID,
		Position:                     position,
		Title:                        f.Title,
		Name:                         f.Name,
		FatherName:                   f.FatherName,
		MotherName:                   f.MotherName,
		DateOfBirth:                  toDate(f.DateOfBirth),
		WealthTaxRegistration:        models.YesNo(f.WealthTaxRegistration),
		WealthTaxRegistrationDetails: f.WealthTaxRegistrationDetails,
		IbbiRegistrationNumber:       f.IbbiRegistrationNumber,
		PanNumber:                    f.PanNumber,
		AadhaarNumber:                f.AadhaarNumber,
		PassportNumber:               f.PassportNumber,
		GstNumber:                    f.GstNumber,
		CorrespondenceAddress:        f.CorrespondenceAddress.toModel(),
		PermanentAddress:             f.PermanentAddress.toModel(),
		EmailAddress:                 f.EmailAddress,
		MobileNumber:                 f.MobileNumber,
		PhotoUpload:                  f.PhotoUpload,
		IsSameAsCorrespondence:       f.IsSameAsCorrespondence,
	}
}

// Step 2
type QualificationsForm struct {
	Personnel []PersonQualificationsForm `json:"personnel" validate:"required,min=1,unique=PersonnelID,dive"`
}

type PersonQualificationsForm struct {
	PersonnelID                string                          `json:"personnel_id" validate:"required"`
	EducationalQualifications  []EducationalQualificationForm  `json:"educationalQualifications" validate:"dive"`
	ProfessionalQualifications []ProfessionalQualificationForm `json:"professionalQualifications" validate:"dive"`
}

type EducationalQualificationForm struct {
	Qualification     string   `json:"qualification" validate:"required"`
	YearOfPassing     *int     `json:"yearOfPassing" validate:"required,passing_year"`
	MarksPercent      *float64 `json:"marksPercent" validate:"required,min=0,max=100"`
	GradeClass        string   `json:"gradeClass" validate:"required"`
	UniversityCollege string   `json:"universityCollege" validate:"required"`
	Remarks           string   `json:"remarks"`
}

type ProfessionalQualificationForm struct {
	Qualification   string     `json:"qualification" validate:"required"`
	Institute       string     `json:"institute" validate:"required"`
	MembershipNo    string     `json:"membershipNo" validate:"required"`
	DateOfEnrolment *time.Time `json:"dateOfEnrolment" validate:"required"`
	Remarks         string     `json:"remarks"`
}

func (f *PersonQualificationsForm) toModels(appID string) ([]models.EducationalQualification, []models.ProfessionalQualification) {
	edu := make([]models.EducationalQualification, 0, len(f.EducationalQualifications))
	for _, q := range f.EducationalQualifications {
		edu = append(edu, models.EducationalQualification{
			AppID:             appID,
			PersonnelID:       f.PersonnelID,
			Qualification:     q.Qualification,
			YearOfPassing:     derefInt(q.YearOfPassing),
			MarksPercent:      decimal.NewFromFloat(derefFloat(q.MarksPercent)).Round(2),
			GradeClass:        q.GradeClass,
			UniversityCollege: q.UniversityCollege,
			Remarks:           q.Remarks,
		})
	}

	prof := make([]models.ProfessionalQualification, 0, len(f.ProfessionalQualifications))
	for _, q := range f.ProfessionalQualifications {
		prof = append(prof, models.ProfessionalQualification{
			AppID:           appID,
			PersonnelID:     f.PersonnelID,
			Qualification:   q.Qualification,
			Institute:       q.Institute,
			MembershipNo:    q.MembershipNo,
			DateOfEnrolment: toDate(q.DateOfEnrolment),
			Remarks:         q.Remarks,
		})
	}
	return edu, prof
}

// Step 3
type ExperienceForm struct {
	Personnel []PersonExperienceForm `json:"personnel" validate:"required,min=1,unique=PersonnelID,dive"`
}

type PersonExperienceForm struct {
	PersonnelID       string                 `json:"personnel_id" validate:"required"`
	ExperienceDetails []ExperienceDetailForm `json:"experienceDetails" validate:"dive"`
}

type ExperienceDetailForm struct {
	CurrentlyInPracticeOrEmployment string     `json:"currentlyInPracticeOrEmployment"`
	YearsInPractice                 *int       `json:"yearsInPractice" validate:"omitempty,min=0"`
	PracticeAddress                 string     `json:"practiceAddress"`
	YearsInEmployment               *int       `json:"yearsInEmployment" validate:"omitempty,min=0"`
	MonthsInEmployment              *int       `json:"monthsInEmployment" validate:"omitempty,min=0,max=11"`
	EvidenceFiles                   []string   `json:"evidenceFiles"`
	FromDate                        *time.Time `json:"fromDate"`
	ToDate                          *time.Time `json:"toDate"`
	EmploymentOrPractice            string     `json:"employmentOrPractice"`
	EmployerNameAndDesignation      string     `json:"employerNameAndDesignation"`
	PracticeExperience              string     `json:"practiceExperience"`
	AreaOfWork                      string     `json:"areaOfWork"`
}

func (f *PersonExperienceForm) toModels(appID string) []models.ExperienceDetail {
	exp := make([]models.ExperienceDetail, 0, len(f.ExperienceDetails))
	for _, e := range f.ExperienceDetails {
		exp = append(exp, models.ExperienceDetail{
			AppID:                           appID,
			PersonnelID:                     f.PersonnelID,
			CurrentlyInPracticeOrEmployment: e.CurrentlyInPracticeOrEmployment,
			YearsInPractice:                 e.YearsInPractice,
			PracticeAddress:                 e.PracticeAddress,
			YearsInEmployment:               e.YearsInEmployment,
			MonthsInEmployment:              e.MonthsInEmployment,
			EvidenceFiles:                   e.EvidenceFiles,
			FromDate:                        toDate(e.FromDate),
			ToDate:                          toDate(e.ToDate),
			EmploymentOrPractice:            e.EmploymentOrPractice,
			EmployerNameAndDesignation:      e.EmployerNameAndDesignation,
			PracticeExperience:              e.PracticeExperience,
			AreaOfWork:                      e.AreaOfWork,
		})
	}
	return exp
}

// Step 4
type BackgroundForm struct {
	ConvictedOffence            string `json:"convictedOffence" validate:"required,oneof=Yes No"`
	ConvictedOffenceDetails     string `json:"convictedOffenceDetails"`
	CriminalProceedings         string `json:"criminalProceedings" validate:"required,oneof=Yes No"`
	CriminalProceedingsDetails  string `json:"criminalProceedingsDetails"`
	UndischargedBankrupt        string `json:"undischargedBankrupt" validate:"required,oneof=Yes No"`
	UndischargedBankruptDetails string `json:"undischargedBankruptDetails"`
	AdditionalInformation       string `json:"additionalInformation"`
}

func (f *BackgroundForm) toModel(appID string) *models.BackgroundInformation {
	return &models.BackgroundInformation{
		AppID:                       appID,
		ConvictedOffence:            models.YesNo(f.ConvictedOffence),
		ConvictedOffenceDetails:     f.ConvictedOffenceDetails,
		CriminalProceedings:         models.YesNo(f.CriminalProceedings),
		CriminalProceedingsDetails:  f.CriminalProceedingsDetails,
		UndischargedBankrupt:        models.YesNo(f.UndischargedBankrupt),
		UndischargedBankruptDetails: f.UndischargedBankruptDetails,
		AdditionalInformation:       f.AdditionalInformation,
	}
}

// Step 5. The lists echo names of files uploaded alongside.
type AttachmentsForm struct {
	IbbiCertificate          []string `json:"ibbi_certificate" validate:"required"`
	WealthTaxCertificate     []string `json:"wealth_tax_certificate" validate:"required"`
	ValuersOrgMembership     []string `json:"valuers_org_membership" validate:"required"`
	ProfessionalBodies       []string `json:"professional_bodies" validate:"required"`
	KycDocuments             []string `json:"kyc_documents" validate:"required"`
	PanCard                  []string `json:"pan_card" validate:"required"`
	AddressProof             []string `json:"address_proof" validate:"required"`
	EducationCertificates    []string `json:"education_certificates" validate:"required"`
	ProfessionalCertificates []string `json:"professional_certificates" validate:"required"`
	ExperienceDocuments      []string `json:"experience_documents" validate:"required"`
	EmploymentCertificates   []string `json:"employment_certificates" validate:"required"`
	ItReturns                []string `json:"it_returns" validate:"required"`
	GstRegistration          []string `json:"gst_registration" validate:"required"`
	CancelledCheque          []string `json:"cancelled_cheque" validate:"required"`
	Photographs              []string `json:"photographs" validate:"required"`
	MoaAoa                   []string `json:"moa_aoa" validate:"required"`
	PartnershipDeed          []string `json:"partnership_deed" validate:"required"`
	CompanyProfile           []string `json:"company_profile" validate:"required"`
	BoardResolution          []string `json:"board_resolution" validate:"required"`
	AuthorizedSignatory      []string `json:"authorized_signatory" validate:"required"`
}

func toDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(*t)
	return &d
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
