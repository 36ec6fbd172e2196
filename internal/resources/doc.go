// Package resources provides MCP resources for the appointment calendar.
// Resources are read-only data sources that MCP clients can fetch to ground
// a conversation before calling tools: the scheduling settings and the
// appointments of the current day.
package resources
