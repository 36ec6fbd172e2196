// Package common provides shared utilities for MCP tool implementations:
// instrumentation wrappers and argument parsing helpers.
package common
