package lowvision

import (
	"fmt"

	"github.com/kalambet/plainsight/internal/profile"
)

// Act assembles the voice guidance package for a form from the error
// analysis and the patient's profile.
func (a *Agent) Act(form FormRequest, ea ErrorAnalysis, p profile.PatientProfile) VoiceGuidance {
	return VoiceGuidance{
		AudioInstructions:  audioInstructions(ea.CriticalErrors),
		ErrorSummaries:     errorSummaries(ea.CriticalErrors, p.VisualAcuity),
		FormDescriptions:   formDescriptions(form, p.VisualAcuity),
		SupportiveMessages: supportiveMessages(ea.GuidancePriority, p.IndependenceLevel),
		VisualAdaptations:  visualAdaptations(p.AccessibilityNeeds),
		NavigationGuidance: navigationGuidance(p.VisualAcuity),
	}
}

// errorSummaries narrates up to three critical errors. Severe vision
// levels get fuller sentences meant to be read aloud.
func errorSummaries(critical []FieldError, acuity string) []string {
	if len(critical) == 0 {
		return []string{"Great news! I don't see any errors that need immediate attention."}
	}

	plural := ""
	if len(critical) != 1 {
		plural = "s"
	}
	summaries := []string{fmt.Sprintf(
		"I found %d field%s that need your attention. Don't worry, I'll guide you through each one step by step.",
		len(critical), plural)}

	for i, e := range critical {
		if i == 3 {
			break
		}
		name := e.FieldName
		if name == "" {
			name = "field"
		}
		errType := e.ErrorType
		if errType == "" {
			errType = "missing information"
		}
		if severeVision(acuity) {
			summaries = append(summaries, fmt.Sprintf(
				"%d. The %s field needs attention. It appears to be %s.", i+1, name, errType))
		} else {
			summaries = append(summaries, fmt.Sprintf("%d. %s: %s", i+1, name, errType))
		}
	}
	return summaries
}

// audioInstructions produces one spoken instruction per critical
// error, with field-type specific entry hints.
func audioInstructions(critical []FieldError) []string {
	instructions := []string{}
	for _, e := range critical {
		name := e.FieldName
		if name == "" {
			name = "this field"
		}
		message := e.ErrorMessage
		if message == "" {
			message = "needs to be completed"
		}
		instruction := fmt.Sprintf("Let's fix %s. %s.", name, message)

		switch e.FieldType {
		case "date":
			instruction += " Please enter your date of birth in MM/DD/YYYY format."
		case "phone":
			instruction += " Please enter your phone number as ten digits."
		case "email":
			instruction += " Please enter your email address with an @ symbol."
		case "insurance_id":
			instruction += " This is usually found on your insurance card."
		}
		instructions = append(instructions, instruction)
	}
	return instructions
}

// formDescriptions describes the form layout for severe vision levels.
// Field types are counted in first-seen order so the narration is
// stable across runs.
func formDescriptions(form FormRequest, acuity string) []string {
	if !severeVision(acuity) {
		return []string{}
	}

	descriptions := []string{fmt.Sprintf(
		"This is a %s form with %d sections to complete.", form.FormType, len(form.Fields))}

	order := []string{}
	counts := map[string]int{}
	for _, f := range form.Fields {
		if _, seen := counts[f.FieldType]; !seen {
			order = append(order, f.FieldType)
		}
		counts[f.FieldType]++
	}
	for _, fieldType := range order {
		n := counts[fieldType]
		plural := ""
		if n != 1 {
			plural = "s"
		}
		descriptions = append(descriptions, fmt.Sprintf(
			"There are %d %s field%s to fill out.", n, fieldType, plural))
	}
	return descriptions
}

func supportiveMessages(priority string, independence float64) []string {
	if independence < 0.4 {
		return []string{
			"You're doing great! Take your time with each field.",
			"I'm here to help you every step of the way.",
			"Remember, there's no rush. We'll get through this together.",
		}
	}
	if priority == "high" {
		return []string{
			"I can see several fields that need attention, but don't worry - we'll fix them one by one.",
			"You've got this! Let's tackle these fields together.",
		}
	}
	return []string{
		"Almost there! Just a few more fields to complete.",
		"You're making excellent progress!",
	}
}

func visualAdaptations(needs []string) profile.VisualAdaptations {
	va := profile.VisualAdaptations{
		FontSize:    "16px",
		Contrast:    "normal",
		ColorScheme: "default",
		Spacing:     "normal",
	}
	for _, need := range needs {
		switch need {
		case "high_contrast":
			va.Contrast = "high"
			va.ColorScheme = "high_contrast"
		case "large_font":
			va.FontSize = "20px"
			va.Spacing = "increased"
		}
	}
	return va
}

func navigationGuidance(acuity string) []string {
	if !severeVision(acuity) {
		return []string{}
	}
	return []string{
		"You can use the Tab key to move between fields.",
		"Press Enter to submit the form when all fields are complete.",
		"If you need to go back to a previous field, use Shift+Tab.",
	}
}
