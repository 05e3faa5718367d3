// internal/services/schema.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

// StepEnvelope is the body of a step submission as received. step_number
// and form_data stay raw because clients send either JSON values or
// strings for them.
type StepEnvelope struct {
	StepNumber json.RawMessage `json:"step_number"`
	Action     string          `json:"action"`
	FormData   json.RawMessage `json:"form_data"`
	AgentType  string          `json:"agent_type,omitempty"`
}

// UploadPolicy describes which files a step accepts.
type UploadPolicy struct {
	Category   string
	Extensions []string
}

func (p *UploadPolicy) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

var (
	imageExtensions    = []string{".jpg", ".jpeg", ".png"}
	documentExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}
	terminalExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"}
)

// StepContract is the validation contract for one step index.
type StepContract struct {
	Step     int
	Action   models.Action
	Optional bool // form_data may be omitted
	Uploads  *UploadPolicy
	newForm  func() interface{}
}

var contracts = map[int]*StepContract{
	0: {
		Step:    0,
		Action:  models.ActionSave,
		Uploads: &UploadPolicy{Category: "FIRM_DETAILS", Extensions: documentExtensions},
		newForm: func() interface{} { return &FirmDetailsForm{} },
	},
	1: {
		Step:    1,
		Action:  models.ActionSave,
		Uploads: &UploadPolicy{Category: "PERSONNEL_DETAILS", Extensions: imageExtensions},
		newForm: func() interface{} { return &PersonnelRosterForm{} },
	},
	2: {
		Step:    2,
		Action:  models.ActionSave,
		newForm: func() interface{} { return &QualificationsForm{} },
	},
	3: {
		Step:    3,
		Action:  models.ActionSave,
		Uploads: &UploadPolicy{Category: "EXPERIENCE", Extensions: documentExtensions},
		newForm: func() interface{} { return &ExperienceForm{} },
	},
	4: {
		Step:    4,
		Action:  models.ActionSave,
		newForm: func() interface{} { return &BackgroundForm{} },
	},
	TerminalStep: {
		Step:     TerminalStep,
		Action:   models.ActionSubmit,
		Optional: true,
		Uploads:  &UploadPolicy{Category: "FINAL_ATTACHMENTS", Extensions: terminalExtensions},
		newForm:  func() interface{} { return &AttachmentsForm{} },
	},
}

// ContractFor looks up the contract registered for step.
func ContractFor(step int) (*StepContract, bool) {
	c, ok := contracts[step]
	return c, ok
}

// ParseStepNumber accepts a JSON number or a numeric string.
func ParseStepNumber(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("step_number is required")
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	} else {
		text = string(raw)
	}

	step, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("step_number must be an integer")
	}
	return step, nil
}

// Validate checks env against the contract and returns the decoded form.
// The form is nil only for an optional step submitted without form_data.
func (c *StepContract) Validate(env *StepEnvelope) (interface{}, error) {
	var violations []utils.ValidationError

	step, err := ParseStepNumber(env.StepNumber)
	switch {
	case err != nil:
		violations = append(violations, utils.ValidationError{Field: "step_number", Tag: "required", Message: err.Error()})
	case step != c.Step:
		violations = append(violations, utils.ValidationError{
			Field:   "step_number",
			Tag:     "eq",
			Message: fmt.Sprintf("step_number must be %d", c.Step),
		})
	}

	if models.Action(env.Action) != c.Action {
		violations = append(violations, utils.ValidationError{
			Field:   "action",
			Tag:     "eq",
			Message: fmt.Sprintf("action must be %s for step %d", c.Action, c.Step),
		})
	}

	obj, present, err := normalizeFormData(env.FormData)
	if err != nil {
		violations = append(violations, utils.ValidationError{Field: formDataField, Tag: "json", Message: err.Error()})
		return nil, validationFailed(violations)
	}
	if !present {
		if !c.Optional {
			violations = append(violations, utils.ValidationError{Field: formDataField, Tag: "required", Message: "form_data is required"})
		}
		if len(violations) > 0 {
			return nil, validationFailed(violations)
		}
		return nil, nil
	}

	form := c.newForm()
	violations = append(violations, decodeForm(obj, form)...)
	if len(violations) > 0 {
		return nil, validationFailed(violations)
	}
	return form, nil
}
