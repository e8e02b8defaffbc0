// Package reader implements the dyslexia reading assistant: a
// perceive, reason, act, learn cycle that turns medical text into an
// adapted, annotated rendition and accumulates evidence about the
// reading user. Perception and adaptation can run on a remote model;
// each phase falls back to the local rule engine on any failure.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/kalambet/plainsight/internal/analysis"
	"github.com/kalambet/plainsight/internal/groq"
	"github.com/kalambet/plainsight/internal/lexicon"
	"github.com/kalambet/plainsight/internal/profile"
)

// Chatter is the remote completion capability the agent may use.
// Implemented by groq.Client.
type Chatter interface {
	Chat(ctx context.Context, req *groq.ChatRequest) (*groq.ChatResponse, error)
}

// Analysis is the full outcome of one analyze cycle.
type Analysis struct {
	OriginalText       string                  `json:"original_text"`
	ComplexityScore    float64                 `json:"complexity_score"`
	MedicalTermsFound  []lexicon.Term          `json:"medical_terms_found"`
	DyslexiaIndicators float64                 `json:"dyslexia_indicators"`
	Patterns           map[string]int          `json:"patterns"`
	SimplifiedText     string                  `json:"simplified_text"`
	VisualAdaptations  analysis.VisualSettings `json:"visual_adaptations"`
	AudioSuggestions   analysis.AudioSettings  `json:"audio_suggestions"`
	SafetyHighlights   []string                `json:"safety_highlights"`
	UserProgress       profile.ReadingProgress `json:"user_progress"`
	Confidence         float64                 `json:"confidence"`
	ProfileConfidence  float64                 `json:"profile_confidence"`
	AssistiveMode      bool                    `json:"assistive_mode"`
	LLMEnabled         bool                    `json:"llm_enabled"`
	AnalysisMethod     string                  `json:"analysis_method"`
}

// Agent analyzes medical text for one reading user.
type Agent struct {
	lex      *lexicon.Lexicon
	profiles *profile.Manager
	chatter  Chatter
	model    string
}

// NewAgent creates an agent that analyzes with the rule engine only.
func NewAgent(lex *lexicon.Lexicon, profiles *profile.Manager) *Agent {
	return &Agent{lex: lex, profiles: profiles}
}

// NewAgentWithLLM creates an agent that perceives and adapts through the
// remote model, keeping the rule engine as the per-phase fallback. An
// empty model selects the default.
func NewAgentWithLLM(lex *lexicon.Lexicon, profiles *profile.Manager, chatter Chatter, model string) *Agent {
	if model == "" {
		model = groq.DefaultModel
	}
	return &Agent{lex: lex, profiles: profiles, chatter: chatter, model: model}
}

// LLMEnabled reports whether the remote capability is configured.
func (a *Agent) LLMEnabled() bool {
	return a.chatter != nil
}

// Method returns the configured analysis mode label.
func (a *Agent) Method() string {
	if a.LLMEnabled() {
		return "LLM"
	}
	return "Rule-based"
}

// Analyze runs the full cycle over text. speed is the observed reading
// speed in words per minute, zero when unknown. The remote capability,
// when configured, is attempted exactly once per phase; any failure is
// logged and recovered with the rule engine, never surfaced.
func (a *Agent) Analyze(ctx context.Context, text string, speed float64) (*Analysis, error) {
	// PERCEIVE
	result := a.perceive(ctx, text)

	// REASON
	iv := analysis.Decide(result)

	// ACT
	adapted := a.act(ctx, text, result, iv)

	// Pattern features always come from the rule engine so the profile
	// confidence tracks the same signal regardless of the analysis path.
	features := analysis.CountFeatures(text)
	sample := analysis.IndicatorEstimate(features, speed)
	matched := a.lex.FindTerms(text)

	// LEARN
	updated, err := a.profiles.UpdateReader(func(p *profile.ReaderProfile) {
		p.ReadingProgress.TextsRead++
		if iv.NeedsSimplification && iv.NeedsVisualSupport && p.DyslexiaSeverity == "mild" {
			p.DyslexiaSeverity = "moderate"
		}
		names := make([]string, len(matched))
		for i, t := range matched {
			names[i] = t.Term
		}
		p.AddLearnedTerms(names...)
		p.ConfidenceLevel = p.ConfidenceLevel*0.7 + sample*0.3
		p.AssistiveMode = p.ConfidenceLevel > 0.5
	})
	if err != nil {
		return nil, fmt.Errorf("updating reader profile: %w", err)
	}

	return &Analysis{
		OriginalText:       text,
		ComplexityScore:    result.ComplexityScore,
		MedicalTermsFound:  result.MedicalTerms,
		DyslexiaIndicators: result.DyslexiaIndicators,
		Patterns:           features.Map(),
		SimplifiedText:     adapted.Simplified,
		VisualAdaptations:  adapted.Visual,
		AudioSuggestions:   adapted.Audio,
		SafetyHighlights:   adapted.Safety,
		UserProgress:       updated.ReadingProgress,
		Confidence:         result.Confidence,
		ProfileConfidence:  round2(updated.ConfidenceLevel),
		AssistiveMode:      updated.AssistiveMode,
		LLMEnabled:         a.LLMEnabled(),
		AnalysisMethod:     a.Method(),
	}, nil
}

func (a *Agent) perceive(ctx context.Context, text string) analysis.Result {
	if !a.LLMEnabled() {
		return analysis.Analyze(a.lex, text)
	}
	result, err := a.llmAnalyze(ctx, text)
	if err != nil {
		slog.Warn("remote analysis failed, falling back to rules", "error", err)
		return analysis.Analyze(a.lex, text)
	}
	return result
}

func (a *Agent) act(ctx context.Context, text string, result analysis.Result, iv analysis.Interventions) analysis.Adapted {
	if !a.LLMEnabled() {
		return analysis.Adapt(a.lex, text, iv)
	}
	adapted, err := a.llmAdapt(ctx, text, result, iv)
	if err != nil {
		slog.Warn("remote adaptation failed, falling back to rules", "error", err)
		return analysis.Adapt(a.lex, text, iv)
	}
	return adapted
}

func (a *Agent) llmAnalyze(ctx context.Context, text string) (analysis.Result, error) {
	resp, err := a.chatter.Chat(ctx, &groq.ChatRequest{
		Model: a.model,
		Messages: []groq.Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: "Analyze this medical text: " + text},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return analysis.Result{}, err
	}
	return parseAnalysis(resp.Content())
}

func (a *Agent) llmAdapt(ctx context.Context, text string, result analysis.Result, iv analysis.Interventions) (analysis.Adapted, error) {
	resp, err := a.chatter.Chat(ctx, &groq.ChatRequest{
		Model: a.model,
		Messages: []groq.Message{
			{Role: "system", Content: adaptationSystemPrompt},
			{Role: "user", Content: buildAdaptationPrompt(text, result, iv)},
		},
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return analysis.Adapted{}, err
	}
	return parseAdaptation(resp.Content(), text)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
