// Package calendar_tools provides the appointment scheduling tools.
//
// Six tools are registered on the MCP server and collected in a Catalog so
// the legacy JSON-RPC routes and the voice-agent webhook can call them by
// name: check_availability, book_appointment, cancel_appointment,
// reschedule_appointment, get_appointments and find_next_available.
//
// Every tool answers with a single human-readable text. Failures are
// returned as MCP error results, never as Go errors.
package calendar_tools
