package lowvision

import (
	"testing"
)

func TestDetectErrorsRegistrationForm(t *testing.T) {
	fields := []FormField{
		{FieldID: "insurance_id", FieldType: "text", Label: "Insurance ID", Value: "12345", Required: true, ValidationRules: []string{"format"}},
		{FieldID: "phone", FieldType: "phone", Label: "Phone Number", Value: "555-123", Required: true, ValidationRules: []string{"phone_format"}},
		{FieldID: "date_of_birth", FieldType: "date", Label: "Date of Birth", Value: "", Required: true, ValidationRules: []string{"date_format"}},
	}

	errs := DetectErrors(fields)
	if len(errs) != 3 {
		t.Fatalf("DetectErrors returned %d errors, want 3", len(errs))
	}

	want := []struct {
		fieldID   string
		errorType string
		message   string
	}{
		{"insurance_id", "invalid format", "Please check your insurance ID"},
		{"phone", "invalid format", "Please enter a valid phone number"},
		{"date_of_birth", "missing information", "This field is required"},
	}
	for i, w := range want {
		if errs[i].FieldID != w.fieldID {
			t.Errorf("errs[%d].FieldID = %q, want %q", i, errs[i].FieldID, w.fieldID)
		}
		if errs[i].ErrorType != w.errorType {
			t.Errorf("errs[%d].ErrorType = %q, want %q", i, errs[i].ErrorType, w.errorType)
		}
		if errs[i].ErrorMessage != w.message {
			t.Errorf("errs[%d].ErrorMessage = %q, want %q", i, errs[i].ErrorMessage, w.message)
		}
		if errs[i].Severity != "critical" {
			t.Errorf("errs[%d].Severity = %q, want %q", i, errs[i].Severity, "critical")
		}
	}
}

func TestDetectErrorsValidValues(t *testing.T) {
	fields := []FormField{
		{FieldID: "insurance_id", FieldType: "text", Value: "ABC123456", Required: true, ValidationRules: []string{"format"}},
		{FieldID: "phone", FieldType: "phone", Value: "(555) 123-4567", Required: true, ValidationRules: []string{"phone_format"}},
		{FieldID: "date_of_birth", FieldType: "date", Value: "01/15/1990", Required: true, ValidationRules: []string{"date_format"}},
		{FieldID: "email", FieldType: "email", Value: "pat@example.com", Required: true, ValidationRules: []string{"email_format"}},
	}

	if errs := DetectErrors(fields); len(errs) != 0 {
		t.Fatalf("DetectErrors returned %d errors, want 0: %+v", len(errs), errs)
	}
}

func TestDetectErrorsOptionalFields(t *testing.T) {
	empty := FormField{FieldID: "fax", FieldType: "phone", Value: "", ValidationRules: []string{"phone_format"}}
	if errs := DetectErrors([]FormField{empty}); len(errs) != 0 {
		t.Fatalf("empty optional field flagged: %+v", errs)
	}

	invalid := FormField{FieldID: "fax", FieldType: "phone", Value: "123", ValidationRules: []string{"phone_format"}}
	errs := DetectErrors([]FormField{invalid})
	if len(errs) != 1 {
		t.Fatalf("DetectErrors returned %d errors, want 1", len(errs))
	}
	if errs[0].Severity != "minor" {
		t.Errorf("Severity = %q, want %q", errs[0].Severity, "minor")
	}
}

func TestDetectErrorsEmail(t *testing.T) {
	f := FormField{FieldID: "email", FieldType: "email", Value: "not-an-address", Required: true, ValidationRules: []string{"email_format"}}
	errs := DetectErrors([]FormField{f})
	if len(errs) != 1 {
		t.Fatalf("DetectErrors returned %d errors, want 1", len(errs))
	}
	if errs[0].ErrorMessage != "Please enter a valid email address" {
		t.Errorf("ErrorMessage = %q, want email message", errs[0].ErrorMessage)
	}
}

func TestDetectErrorsDateMessages(t *testing.T) {
	dob := FormField{FieldID: "date_of_birth", FieldType: "date", Value: "15/45/1990", Required: true, ValidationRules: []string{"date_format"}}
	visit := FormField{FieldID: "visit_date", FieldType: "date", Value: "tomorrow", Required: true, ValidationRules: []string{"date_format"}}

	errs := DetectErrors([]FormField{dob, visit})
	if len(errs) != 2 {
		t.Fatalf("DetectErrors returned %d errors, want 2", len(errs))
	}
	if errs[0].ErrorMessage != "Please check your date of birth" {
		t.Errorf("date_of_birth message = %q, want birth-date message", errs[0].ErrorMessage)
	}
	if errs[1].ErrorMessage != "Please enter a valid date" {
		t.Errorf("visit_date message = %q, want generic date message", errs[1].ErrorMessage)
	}
}

func TestDetectErrorsFieldNameFallback(t *testing.T) {
	f := FormField{FieldID: "emergency_contact", Value: "", Required: true}
	errs := DetectErrors([]FormField{f})
	if len(errs) != 1 {
		t.Fatalf("DetectErrors returned %d errors, want 1", len(errs))
	}
	if errs[0].FieldName != "emergency_contact" {
		t.Errorf("FieldName = %q, want field ID fallback", errs[0].FieldName)
	}
}

func TestValidDate(t *testing.T) {
	for _, value := range []string{"01/15/1990", "1990-01-15"} {
		if !validDate(value) {
			t.Errorf("validDate(%q) = false, want true", value)
		}
	}
	for _, value := range []string{"13/45/1990", "yesterday", "1990/01/15"} {
		if validDate(value) {
			t.Errorf("validDate(%q) = true, want false", value)
		}
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"5551234567", true},
		{"(555) 123-4567", true},
		{"555.123.4567", true},
		{"555-123", false},
		{"555123456789", false},
		{"555-ABC-4567", false},
	}
	for _, tt := range tests {
		if got := validPhone(tt.value); got != tt.want {
			t.Errorf("validPhone(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
