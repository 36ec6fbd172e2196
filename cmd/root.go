package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the apptdesk application
var rootCmd = &cobra.Command{
	Use:   "apptdesk",
	Short: "Appointment scheduling over a Google Calendar",
	Long: `apptdesk books, cancels and reschedules appointments in a single Google
Calendar and searches it for free slots.

The operations are exposed as:
  - MCP tools (stdio or streamable HTTP)
  - Legacy JSON-RPC routes (/, /tools, /mcp/tools)
  - An ElevenLabs voice-agent webhook (/elevenlabs/webhook)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apptdesk version %s\n" .Version}}`)

	// Without a subcommand the server starts, as the container image expects.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
