// internal/models/application.go
package models

import (
	"time"
)

// Application is the aggregate root of an onboarding submission. Its
// identifier is supplied by the caller and never generated here.
type Application struct {
	UUID        string            `json:"request_uuid" gorm:"column:uuid;primaryKey;size:36"`
	AgentType   AgentType         `json:"agent_type" gorm:"type:varchar(20);not null"`
	CurrentStep int               `json:"current_step" gorm:"not null;default:0"`
	Status      ApplicationStatus `json:"status" gorm:"type:varchar(20);not null;default:'IN_PROGRESS';index"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (a *Application) IsCompleted() bool {
	return a.Status == ApplicationStatusCompleted
}

// Address is stored as normalized columns under a per-use prefix.
type Address struct {
	AddressLine1 string `json:"addressLine1" gorm:"column:address_line1;size:255;not null"`
	AddressLine2 string `json:"addressLine2" gorm:"column:address_line2;size:255"`
	City         string `json:"city" gorm:"size:100;not null"`
	State        string `json:"state" gorm:"size:100;not null"`
	Pincode      string `json:"pincode" gorm:"size:10;not null"`
}

type FirmDetails struct {
	BaseModel
	AppID                 string  `json:"-" gorm:"size:36;not null;uniqueIndex"`
	FirmName              string  `json:"firmName" gorm:"size:255;not null"`
	RegistrationNumber    string  `json:"registrationNumber" gorm:"size:100"`
	PanNumber             string  `json:"panNumber" gorm:"size:10;not null;index"`
	GstNumber             string  `json:"gstNumber" gorm:"size:15"`
	CorrespondenceAddress Address `json:"correspondenceAddress" gorm:"embedded;embeddedPrefix:correspondence_"`
	PermanentAddress      Address `json:"permanentAddress" gorm:"embedded;embeddedPrefix:permanent_"`
	EmailAddress          string  `json:"emailAddress" gorm:"size:255;not null;index"`
	MobileNumber          string  `json:"mobileNumber" gorm:"size:15;not null"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
}

type BackgroundInformation struct {
	BaseModel
	AppID                       string `json:"-" gorm:"size:36;not null;uniqueIndex"`
	ConvictedOffence            YesNo  `json:"convictedOffence" gorm:"type:varchar(20)"`
	ConvictedOffenceDetails     string `json:"convictedOffenceDetails" gorm:"type:text"`
	CriminalProceedings         YesNo  `json:"criminalProceedings" gorm:"type:varchar(20)"`
	CriminalProceedingsDetails  string `json:"criminalProceedingsDetails" gorm:"type:text"`
	UndischargedBankrupt        YesNo  `json:"undischargedBankrupt" gorm:"type:varchar(20)"`
	UndischargedBankruptDetails string `json:"undischargedBankruptDetails" gorm:"type:text"`
	AdditionalInformation       string `json:"additionalInformation" gorm:"type:text"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
}

func (BackgroundInformation) TableName() string {
	return "background_information"
}

// Attachment rows are append-only file metadata; bytes live in storage.
type Attachment struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AppID        string    `json:"-" gorm:"size:36;not null;index"`
	PersonnelID  *string   `json:"personnel_id,omitempty" gorm:"size:36;index"`
	DocumentType string    `json:"document_type" gorm:"size:100;not null;index"`
	FileName     string    `json:"file_name" gorm:"size:255;not null"`
	FilePath     string    `json:"file_path" gorm:"size:500;not null"`
	FileSize     int64     `json:"file_size"`
	Metadata     JSONB     `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time `json:"created_at"`

	// Relationships
	Application *Application `json:"-" gorm:"foreignKey:AppID;references:UUID;constraint:OnDelete:CASCADE"`
	Personnel   *Personnel   `json:"-" gorm:"foreignKey:PersonnelID;references:PersonnelID;constraint:OnDelete:SET NULL"`
}
