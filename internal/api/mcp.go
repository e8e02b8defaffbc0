package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/plainsight/internal/lexicon"
	"github.com/kalambet/plainsight/internal/lowvision"
	"github.com/kalambet/plainsight/internal/profile"
	"github.com/kalambet/plainsight/internal/reader"
)

// MCPDeps holds dependencies for the MCP server. A nil Lexicon falls
// back to the built-in one.
type MCPDeps struct {
	Profiles   *profile.Manager
	Reader     *reader.Agent
	Healthcare *lowvision.Agent
	Lexicon    *lexicon.Lexicon
}

// NewMCPServer creates an MCP server with the analysis tools and
// profile resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Lexicon == nil {
		deps.Lexicon = lexicon.Default()
	}

	s := server.NewMCPServer(
		"plainsight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("plainsight — accessible medical text analysis and voice-guided form assistance for low-vision and dyslexic users."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("analyze_medical_text",
			mcp.WithDescription("Analyze medical text for reading complexity and return a simplified, dyslexia-adapted rendition with term definitions and safety highlights."),
			mcp.WithString("text", mcp.Description("The medical text to analyze"), mcp.Required()),
			mcp.WithNumber("reading_speed", mcp.Description("Observed reading speed in words per minute, if known")),
		),
		mcpAnalyzeMedicalText(deps),
	)

	s.AddTool(
		mcp.NewTool("lookup_medical_term",
			mcp.WithDescription("Look up the plain-language definition of a medical term."),
			mcp.WithString("term", mcp.Description("The term to look up"), mcp.Required()),
		),
		mcpLookupMedicalTerm(deps),
	)

	s.AddTool(
		mcp.NewTool("patient_voice_guidance",
			mcp.WithDescription("Detect errors on a medical form and generate voice guidance for a previously analyzed patient."),
			mcp.WithString("patient_id", mcp.Description("ID of a patient analyzed earlier"), mcp.Required()),
			mcp.WithString("form", mcp.Description("JSON form object: {form_id, form_type, fields, completion_status}"), mcp.Required()),
		),
		mcpPatientVoiceGuidance(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"plainsight://profile/reader",
			"Reader Profile",
			mcp.WithResourceDescription("Current reader profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceReaderProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"plainsight://analytics/overview",
			"Healthcare Overview",
			mcp.WithResourceDescription("Aggregate accessibility analytics across all profiled patients"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceOverview(deps),
	)

	return s
}

func mcpAnalyzeMedicalText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		speed := req.GetFloat("reading_speed", 0)
		if speed < 0 {
			speed = 0
		}

		result, err := deps.Reader.Analyze(ctx, text, speed)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpLookupMedicalTerm(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term, err := req.RequireString("term")
		if err != nil {
			return mcpError("term is required"), nil
		}

		query := strings.ToLower(strings.TrimSpace(term))
		if def, ok := deps.Lexicon.Definition(query); ok {
			b, err := json.Marshal(lexicon.Term{Term: query, Definition: def})
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal term: %v", err)), nil
			}
			return mcpText(string(b)), nil
		}

		// Partial match so "allergic" still finds "allergic reactions".
		var matches []lexicon.Term
		for _, t := range deps.Lexicon.Terms() {
			if strings.Contains(t, query) {
				def, _ := deps.Lexicon.Definition(t)
				matches = append(matches, lexicon.Term{Term: t, Definition: def})
			}
		}
		if len(matches) == 0 {
			return mcpText(fmt.Sprintf("No definition found for %q.", term)), nil
		}

		b, err := json.Marshal(matches)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal terms: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPatientVoiceGuidance(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		patientID, err := req.RequireString("patient_id")
		if err != nil {
			return mcpError("patient_id is required"), nil
		}
		formJSON, err := req.RequireString("form")
		if err != nil {
			return mcpError("form is required"), nil
		}

		var form lowvision.FormRequest
		if err := json.Unmarshal([]byte(formJSON), &form); err != nil {
			return mcpError(fmt.Sprintf("invalid form JSON: %v", err)), nil
		}

		guidance, err := deps.Healthcare.Guide(patientID, form)
		if errors.Is(err, profile.ErrNotFound) {
			return mcpError("Patient profile not found. Please analyze patient first."), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("guidance failed: %v", err)), nil
		}

		b, err := json.Marshal(guidance)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal guidance: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceReaderProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Profiles.Reader())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceOverview(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(buildOverview(deps.Profiles, deps.Healthcare))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal overview: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
