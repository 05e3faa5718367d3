// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Base model for child rows keyed by a surrogate integer id
type BaseModel struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type AgentType string

const (
	AgentTypeIndividual AgentType = "INDIVIDUAL"
	AgentTypeCorporate  AgentType = "CORPORATE"
)

func (t AgentType) Valid() bool {
	return t == AgentTypeIndividual || t == AgentTypeCorporate
}

type ApplicationStatus string

const (
	ApplicationStatusInProgress ApplicationStatus = "IN_PROGRESS"
	ApplicationStatusCompleted  ApplicationStatus = "COMPLETED"
)

type Action string

const (
	ActionSave   Action = "SAVE"
	ActionSubmit Action = "SUBMIT"
)

type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)
