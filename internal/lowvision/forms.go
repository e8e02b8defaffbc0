package lowvision

import (
	"strings"
	"time"
	"unicode"
)

var formErrorMessages = map[string]string{
	"required_field_missing": "This field is required",
	"invalid_format":         "Please check the format",
	"invalid_date":           "Please enter a valid date",
	"invalid_phone":          "Please enter a valid phone number",
	"invalid_email":          "Please enter a valid email address",
	"insurance_id_invalid":   "Please check your insurance ID",
	"date_of_birth_invalid":  "Please check your date of birth",
}

// DetectErrors validates form fields against their declared rules.
// Required fields must be non-empty; format rules get a shallow
// plausibility check suited to voice guidance, not full validation.
func DetectErrors(fields []FormField) []FieldError {
	errors := []FieldError{}
	for _, f := range fields {
		if fe, ok := detectFieldError(f); ok {
			errors = append(errors, fe)
		}
	}
	return errors
}

func detectFieldError(f FormField) (FieldError, bool) {
	value := strings.TrimSpace(f.Value)

	if f.Required && value == "" {
		return newFieldError(f, "missing information", "required_field_missing"), true
	}
	if value == "" {
		return FieldError{}, false
	}

	for _, rule := range f.ValidationRules {
		if !strings.Contains(rule, "format") {
			continue
		}
		if errType, ok := checkFormat(f, rule, value); ok {
			return newFieldError(f, "invalid format", errType), true
		}
	}
	return FieldError{}, false
}

// checkFormat reports the error type for a value that fails its format
// rule. The rule prefix picks the check; the bare "format" rule falls
// back to a minimum-length alphanumeric check.
func checkFormat(f FormField, rule, value string) (string, bool) {
	switch {
	case strings.HasPrefix(rule, "phone"):
		if !validPhone(value) {
			return "invalid_phone", true
		}
	case strings.HasPrefix(rule, "date"):
		if !validDate(value) {
			if f.FieldID == "date_of_birth" {
				return "date_of_birth_invalid", true
			}
			return "invalid_date", true
		}
	case strings.HasPrefix(rule, "email"):
		if !strings.Contains(value, "@") {
			return "invalid_email", true
		}
	default:
		if !alnumAtLeast(value, 6) {
			if f.FieldID == "insurance_id" {
				return "insurance_id_invalid", true
			}
			return "invalid_format", true
		}
	}
	return "", false
}

// validPhone accepts exactly ten digits mixed with common separators.
func validPhone(value string) bool {
	digits := 0
	for _, r := range value {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(" -()+.", r):
		default:
			return false
		}
	}
	return digits == 10
}

func validDate(value string) bool {
	for _, layout := range []string{"01/02/2006", "2006-01-02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func alnumAtLeast(value string, n int) bool {
	count := 0
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count >= n
}

func newFieldError(f FormField, errType, messageKey string) FieldError {
	severity := "minor"
	if f.Required {
		severity = "critical"
	}
	name := f.Label
	if name == "" {
		name = f.FieldID
	}
	return FieldError{
		FieldName:    name,
		FieldID:      f.FieldID,
		FieldType:    f.FieldType,
		ErrorType:    errType,
		ErrorMessage: formErrorMessages[messageKey],
		Severity:     severity,
		Required:     f.Required,
	}
}
