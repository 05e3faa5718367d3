// internal/models/personnel.go
package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Personnel is one roster entry. Position is the entry's index in the
// submitted roster; PersonnelID stays stable for a given position.
type Personnel struct {
	BaseModel
	PersonnelID                  string          `json:"personnel_id" gorm:"size:36;not null;uniqueIndex"`
	AppID                        string          `json:"-" gorm:"size:36;not null;uniqueIndex:idx_personnel_app_position,priority:1"`
	Position                     int             `json:"-" gorm:"not null;uniqueIndex:idx_personnel_app_position,priority:2"`
	Title                        string          `json:"title" gorm:"size:10"`
	Name                         string          `json:"name" gorm:"size:255;not null"`
	FatherName                   string          `json:"fatherName" gorm:"size:255"`
	MotherName                   string          `json:"motherName" gorm:"size:255"`
	DateOfBirth                  *datatypes.Date `json:"dateOfBirth"`
	WealthTaxRegistration        YesNo           `json:"wealthTaxRegistration" gorm:"type:varchar(20)"`
	WealthTaxRegistrationDetails string          `json:"wealthTaxRegistrationDetails" gorm:"size:255"`
	IbbiRegistrationNumber       string          `json:"ibbiRegistrationNumber" gorm:"size:100"`
	PanNumber                    string          `json:"panNumber" gorm:"size:10;not null;index"`
	AadhaarNumber                string          `json:"aadhaarNumber" gorm:"size:12;index"`
	PassportNumber               string          `json:"passportNumber" gorm:"size:20"`
	GstNumber                    string          `json:"gstNumber" gorm:"size:15"`
	CorrespondenceAddress        Address         `json:"correspondenceAddress" gorm:"embedded;embeddedPrefix:correspondence_"`
	PermanentAddress             Address         `json:"permanentAddress" gorm:"embedded;embeddedPrefix:permanent_"`
	EmailAddress                 string          `json:"emailAddress" gorm:"size:255"`
	MobileNumber                 string          `json:"mobileNumber" gorm:"size:15"`
	PhotoUpload                  string          `json:"photoUpload" gorm:"size:255"`
	IsSameAsCorrespondence       bool            `json:"isSameAsCorrespondence" gorm:"default:false"`

	// Relationships
	Application                *Application                `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
	EducationalQualifications  []EducationalQualification  `json:"educationalQualifications" gorm:"foreignKey:PersonnelID;references:PersonnelID;constraint:OnDelete:CASCADE"`
	ProfessionalQualifications []ProfessionalQualification `json:"professionalQualifications" gorm:"foreignKey:PersonnelID;references:PersonnelID;constraint:OnDelete:CASCADE"`
	ExperienceDetails          []ExperienceDetail          `json:"experienceDetails" gorm:"foreignKey:PersonnelID;references:PersonnelID;constraint:OnDelete:CASCADE"`
}

func (Personnel) TableName() string {
	return "personnel"
}

type EducationalQualification struct {
	ID                uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	AppID             string          `json:"-" gorm:"size:36;not null;index:idx_edu_app_personnel,priority:1"`
	PersonnelID       string          `json:"-" gorm:"size:36;not null;index:idx_edu_app_personnel,priority:2"`
	Qualification     string          `json:"qualification" gorm:"size:255;not null"`
	YearOfPassing     int             `json:"yearOfPassing"`
	MarksPercent      decimal.Decimal `json:"marksPercent" gorm:"type:decimal(5,2)"`
	GradeClass        string          `json:"gradeClass" gorm:"size:50"`
	UniversityCollege string          `json:"universityCollege" gorm:"size:255"`
	Remarks           string          `json:"remarks" gorm:"type:text"`
	CreatedAt         time.Time       `json:"-"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
}

type ProfessionalQualification struct {
	ID              uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	AppID           string          `json:"-" gorm:"size:36;not null;index:idx_prof_app_personnel,priority:1"`
	PersonnelID     string          `json:"-" gorm:"size:36;not null;index:idx_prof_app_personnel,priority:2"`
	Qualification   string          `json:"qualification" gorm:"size:255;not null"`
	Institute       string          `json:"institute" gorm:"size:255"`
	MembershipNo    string          `json:"membershipNo" gorm:"size:100;index"`
	DateOfEnrolment *datatypes.Date `json:"dateOfEnrolment"`
	Remarks         string          `json:"remarks" gorm:"type:text"`
	CreatedAt       time.Time       `json:"-"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
}

type ExperienceDetail struct {
	ID                              uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	AppID                           string          `json:"-" gorm:"size:36;not null;index:idx_exp_app_personnel,priority:1"`
	PersonnelID                     string          `json:"-" gorm:"size:36;not null;index:idx_exp_app_personnel,priority:2"`
	CurrentlyInPracticeOrEmployment string          `json:"currentlyInPracticeOrEmployment" gorm:"size:20"`
	YearsInPractice                 *int            `json:"yearsInPractice"`
	PracticeAddress                 string          `json:"practiceAddress" gorm:"type:text"`
	YearsInEmployment               *int            `json:"yearsInEmployment"`
	MonthsInEmployment              *int            `json:"monthsInEmployment"`
	EvidenceFiles                   pq.StringArray  `json:"evidenceFiles" gorm:"type:text[]"`
	FromDate                        *datatypes.Date `json:"fromDate"`
	ToDate                          *datatypes.Date `json:"toDate"`
	EmploymentOrPractice            string          `json:"employmentOrPractice" gorm:"size:100"`
	EmployerNameAndDesignation      string          `json:"employerNameAndDesignation" gorm:"size:255"`
	PracticeExperience              string          `json:"practiceExperience" gorm:"size:255"`
	AreaOfWork                      string          `json:"areaOfWork" gorm:"type:text"`
	CreatedAt                       time.Time       `json:"-"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
}
