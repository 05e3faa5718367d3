// internal/services/coerce.go
package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/javajoker/agency-onboarding/internal/utils"
)

const formDataField = "form_data"

// Keys whose string values are parsed before validation. Any other key is
// passed through untouched.
var (
	integerFields = map[string]bool{
		"yearOfPassing":      true,
		"yearsInPractice":    true,
		"yearsInEmployment":  true,
		"monthsInEmployment": true,
	}
	decimalFields = map[string]bool{
		"marksPercent": true,
	}
	dateFields = map[string]bool{
		"dateOfBirth":     true,
		"dateOfEnrolment": true,
		"fromDate":        true,
		"toDate":          true,
	}
)

const dateLayout = "2006-01-02"

var timeType = reflect.TypeOf(time.Time{})

// normalizeFormData turns form_data into an object. A JSON string holding
// an object is accepted for multipart clients. present is false when the
// field is absent or null.
func normalizeFormData(raw json.RawMessage) (obj map[string]interface{}, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, true, err
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, false, nil
		}
		raw = []byte(encoded)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, true, fmt.Errorf("form_data must be a JSON object: %w", err)
	}
	if obj == nil {
		return nil, true, fmt.Errorf("form_data must be a JSON object")
	}
	return obj, true, nil
}

// coerceValues rewrites allow-listed string fields in place and reports
// the ones that cannot be parsed. Unparseable values become null.
func coerceValues(value interface{}, path string) []utils.ValidationError {
	var violations []utils.ValidationError

	switch v := value.(type) {
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			child := path + "." + key
			s, isString := v[key].(string)
			switch {
			case isString && integerFields[key]:
				coerced, violation := coerceInteger(s, child)
				v[key] = coerced
				violations = appendViolation(violations, violation)
			case isString && decimalFields[key]:
				coerced, violation := coerceDecimal(s, child)
				v[key] = coerced
				violations = appendViolation(violations, violation)
			case isString && dateFields[key]:
				coerced, violation := coerceDate(s, child)
				v[key] = coerced
				violations = appendViolation(violations, violation)
			default:
				violations = append(violations, coerceValues(v[key], child)...)
			}
		}
	case []interface{}:
		for i, item := range v {
			violations = append(violations, coerceValues(item, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return violations
}

func coerceInteger(s, field string) (interface{}, *utils.ValidationError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &utils.ValidationError{Field: field, Tag: "numeric", Message: lastSegment(field) + " must be a whole number"}
	}
	return n, nil
}

func coerceDecimal(s, field string) (interface{}, *utils.ValidationError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &utils.ValidationError{Field: field, Tag: "numeric", Message: lastSegment(field) + " must be a number"}
	}
	return f, nil
}

func coerceDate(s, field string) (interface{}, *utils.ValidationError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(time.RFC3339), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.RFC3339Nano), nil
	}
	return nil, &utils.ValidationError{Field: field, Tag: "date", Message: lastSegment(field) + " must be a date in YYYY-MM-DD format"}
}

// unknownFields lists object keys with no matching json tag in t and
// removes them from value.
func unknownFields(value interface{}, t reflect.Type, path string) []utils.ValidationError {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var violations []utils.ValidationError
	switch v := value.(type) {
	case map[string]interface{}:
		if t.Kind() != reflect.Struct || t == timeType {
			return nil
		}
		fields := jsonFields(t)
		for _, key := range sortedKeys(v) {
			child := path + "." + key
			ft, ok := fields[key]
			if !ok {
				violations = append(violations, utils.ValidationError{
					Field:   child,
					Tag:     "unknown",
					Message: key + " is not allowed",
				})
				delete(v, key)
				continue
			}
			violations = append(violations, unknownFields(v[key], ft, child)...)
		}
	case []interface{}:
		if t.Kind() != reflect.Slice {
			return nil
		}
		for i, item := range v {
			violations = append(violations, unknownFields(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i))...)
		}
	}
	return violations
}

func jsonFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = f.Type
	}
	return fields
}

// decodeForm coerces obj and decodes it into form, then runs the struct
// rules. Every violation found is returned; a field reported by coercion
// or as unknown is not reported again by the rules.
func decodeForm(obj map[string]interface{}, form interface{}) []utils.ValidationError {
	violations := coerceValues(obj, formDataField)
	violations = append(violations, unknownFields(obj, reflect.TypeOf(form), formDataField)...)

	data, err := json.Marshal(obj)
	if err != nil {
		return append(violations, utils.ValidationError{Field: formDataField, Tag: "json", Message: err.Error()})
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(form); err != nil {
		return append(violations, decodeViolation(err))
	}

	if err := utils.ValidateStruct(form); err != nil {
		reported := make(map[string]bool, len(violations))
		for _, v := range violations {
			reported[v.Field] = true
		}
		for _, v := range utils.GetValidationErrors(err, formDataField) {
			if !reported[v.Field] {
				violations = append(violations, v)
			}
		}
	}
	return violations
}

func decodeViolation(err error) utils.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return utils.ValidationError{
			Field:   formDataField + "." + typeErr.Field,
			Tag:     "type",
			Message: fmt.Sprintf("%s must be of type %s", lastSegment(typeErr.Field), typeErr.Type),
		}
	}
	return utils.ValidationError{Field: formDataField, Tag: "type", Message: err.Error()}
}

func appendViolation(violations []utils.ValidationError, v *utils.ValidationError) []utils.ValidationError {
	if v == nil {
		return violations
	}
	return append(violations, *v)
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
