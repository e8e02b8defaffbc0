package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/plainsight/internal/config"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze medical text for reading accessibility",
	Long: `Analyze medical text and print a simplified, dyslexia-adapted
rendition with term definitions and safety highlights.

Reads from stdin when the argument is "-" or omitted.

Examples:
  plainsight analyze "Take two tablets daily. Contact your physician if symptoms persist."
  cat leaflet.txt | plainsight analyze -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speed, _ := cmd.Flags().GetFloat64("speed")

		var text string
		if len(args) == 0 || args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			text = strings.TrimSpace(string(data))
		} else {
			text = args[0]
		}
		if text == "" {
			return fmt.Errorf("no text to analyze")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"text": text}
		if speed > 0 {
			body["user_speed"] = speed
		}
		resp, err := client.post(cmd.Context(), "/analyze", body)
		if err != nil {
			return err
		}

		var result struct {
			ComplexityScore float64 `json:"complexity_score"`
			MedicalTerms    []struct {
				Term       string `json:"term"`
				Definition string `json:"definition"`
			} `json:"medical_terms_found"`
			SimplifiedText   string   `json:"simplified_text"`
			SafetyHighlights []string `json:"safety_highlights"`
			AnalysisMethod   string   `json:"analysis_method"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStatus("Complexity", "%.2f", result.ComplexityScore)
		printStatus("Method", "%s", result.AnalysisMethod)
		if len(result.MedicalTerms) > 0 {
			fmt.Fprintln(os.Stderr)
			for _, t := range result.MedicalTerms {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", colorize(colorBold, t.Term), t.Definition)
			}
		}
		for _, h := range result.SafetyHighlights {
			printWarning("%s", h)
		}

		// The simplified rendition goes to stdout so it can be piped.
		fmt.Fprintln(os.Stderr)
		fmt.Println(result.SimplifiedText)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Float64("speed", 0, "observed reading speed in words per minute")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the reader profile",
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the reader profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}
		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Update one reader profile field",
	Long: `Update one reader profile field.

Fields:
  dyslexia_severity      mild | moderate | severe
  preferred_adaptations  comma-separated list
  assistive_mode         true | false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := profilePatchBody(args[0], args[1])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/profile", body)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("%s = %s", args[0], args[1])
		return nil
	},
}

// profilePatchBody turns a field/value pair from the command line into
// the typed PATCH /profile body.
func profilePatchBody(field, value string) (map[string]any, error) {
	switch field {
	case "dyslexia_severity":
		return map[string]any{field: value}, nil
	case "preferred_adaptations":
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return map[string]any{field: parts}, nil
	case "assistive_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q for assistive_mode", value)
		}
		return map[string]any{field: b}, nil
	default:
		return nil, fmt.Errorf("unknown field %q (valid: dyslexia_severity, preferred_adaptations, assistive_mode)", field)
	}
}

func init() {
	profileCmd.AddCommand(profileGetCmd)
	profileCmd.AddCommand(profileSetCmd)
}

// --- patients ---

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Work with low-vision patient profiles",
}

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiled patients",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/patients")
		if err != nil {
			return err
		}

		var patients []struct {
			PatientID         string  `json:"patient_id"`
			VisualAcuity      string  `json:"visual_acuity"`
			IndependenceLevel float64 `json:"independence_level"`
			LastUpdated       string  `json:"last_updated"`
		}
		if err := decodeJSON(resp, &patients); err != nil {
			return err
		}

		if len(patients) == 0 {
			fmt.Println("No patients profiled yet.")
			return nil
		}
		for _, p := range patients {
			updated := p.LastUpdated
			if updated == "" {
				updated = "never"
			}
			fmt.Printf("%s  %-10s  independence %.2f  updated %s\n",
				colorize(colorCyan, p.PatientID), p.VisualAcuity, p.IndependenceLevel, updated)
		}
		return nil
	},
}

var patientCmd = &cobra.Command{
	Use:   "patient <id>",
	Short: "Print one patient profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/patient-profile/"+args[0])
		if err != nil {
			return err
		}
		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	patientsCmd.AddCommand(patientsListCmd)
}

// --- overview ---

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show aggregate accessibility analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/analytics/healthcare-overview")
		if err != nil {
			return err
		}

		var ov struct {
			TotalPatients            int            `json:"total_patients"`
			VisualAcuityDistribution map[string]int `json:"visual_acuity_distribution"`
			AverageIndependence      float64        `json:"average_independence_level"`
			AgenticAIStatus          string         `json:"agentic_ai_status"`
			TotalFormAdaptations     int            `json:"total_form_adaptations"`
			VoiceGuidanceSessions    int            `json:"voice_guidance_sessions"`
		}
		if err := decodeJSON(resp, &ov); err != nil {
			return err
		}

		printStatus("Patients", "%d", ov.TotalPatients)
		printStatus("Avg independence", "%.2f", ov.AverageIndependence)
		printStatus("Agentic AI", "%s", ov.AgenticAIStatus)
		printStatus("Form adaptations", "%d", ov.TotalFormAdaptations)
		printStatus("Guidance sessions", "%d", ov.VoiceGuidanceSessions)
		if len(ov.VisualAcuityDistribution) > 0 {
			printStatus("Visual acuity", "%s", formatDistribution(ov.VisualAcuityDistribution))
		}
		return nil
	},
}

// formatDistribution renders a count map as "severe: 2, moderate: 1"
// with stable key order.
func formatDistribution(dist map[string]int) string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, dist[k]))
	}
	return strings.Join(parts, ", ")
}

// --- documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Queue and inspect analyzed documents",
}

var documentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a document for accessibility analysis",
	Long: `Queue a document for accessibility analysis. The server extracts
the text, scores its complexity, and folds learned terms into the
reader profile.

Examples:
  plainsight documents add --text "Take two tablets daily." --tags medication
  plainsight documents add --url https://example.com/aftercare
  plainsight documents add --file ./leaflet.pdf --title "Leaflet"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		url, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		body, err := documentAddRequest(text, url, file, title, tags)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/documents", body)
		if err != nil {
			return err
		}

		var result struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Document %s %s", result.ID, result.Status)
		return nil
	},
}

// documentAddRequest builds the POST /documents body from the add
// flags. Exactly one of text, url, or file must be set; file contents
// travel base64-encoded.
func documentAddRequest(text, url, file, title string, tags []string) (map[string]any, error) {
	set := 0
	for _, v := range []string{text, url, file} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return nil, fmt.Errorf("one of --text, --url, or --file is required")
	}
	if set > 1 {
		return nil, fmt.Errorf("--text, --url, and --file are mutually exclusive")
	}

	body := map[string]any{"source": "cli"}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	if title != "" {
		body["title"] = title
	}

	switch {
	case text != "":
		body["type"] = "text"
		body["content"] = text
	case url != "":
		body["type"] = "url"
		body["url"] = url
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		body["type"] = "file"
		body["content"] = base64.StdEncoding.EncodeToString(data)
		if title == "" {
			body["title"] = filepath.Base(file)
		}
	}
	return body, nil
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued and analyzed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/documents?limit=%d", limit))
		if err != nil {
			return err
		}

		var docs []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Status    string `json:"status"`
			Type      string `json:"type"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents yet.")
			return nil
		}
		for _, d := range docs {
			status := d.Status
			switch status {
			case "analyzed":
				status = colorize(colorGreen, status)
			case "failed":
				status = colorize(colorRed, status)
			}
			fmt.Printf("%s  %-10s  %-6s  %s\n", colorize(colorCyan, d.ID[:8]), status, d.Type, d.Title)
		}
		fmt.Printf("\n%s documents\n", countLabel(len(docs), limit))
		return nil
	},
}

// countLabel renders a result count, marking a full page with "+"
// since more rows may exist beyond the limit.
func countLabel(count, limit int) string {
	if limit > 0 && count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return strconv.Itoa(count)
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

func init() {
	documentsAddCmd.Flags().String("text", "", "inline text to analyze")
	documentsAddCmd.Flags().String("url", "", "fetch and analyze a web page")
	documentsAddCmd.Flags().String("file", "", "path of a file to upload")
	documentsAddCmd.Flags().String("title", "", "document title")
	documentsAddCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	documentsListCmd.Flags().Int("limit", 20, "maximum documents to list")

	documentsCmd.AddCommand(documentsAddCmd)
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, kv := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, kv.Key), kv.Value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, kv := range config.ShowAll(cfg) {
			if kv.Key == args[0] {
				fmt.Println(kv.Value)
				return nil
			}
		}
		return fmt.Errorf("unknown config key %q (valid: %s)", args[0], strings.Join(config.ValidKeys(), ", "))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("%s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
