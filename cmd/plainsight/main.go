package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "plainsight",
	Short: "Accessible medical text analysis and form guidance",
	Long: `plainsight makes healthcare information accessible. It analyzes
medical text for dyslexic readers and guides low-vision patients
through medical forms with voice-oriented instructions.

Run "plainsight serve" to start the server, then use the other
commands to talk to it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(patientsCmd)
	rootCmd.AddCommand(patientCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
