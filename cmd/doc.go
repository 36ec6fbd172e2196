// Package cmd implements the command-line interface for apptdesk.
//
// This package provides the following commands:
//   - serve: Start the appointment server (MCP, JSON-RPC routes and webhook)
//   - slots: Preview free slots against the configured calendar
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
