// Package config loads the apptdesk runtime configuration.
//
// Values are layered with koanf: struct defaults, an optional YAML file,
// APPTDESK_* environment variables and finally the plain variable names used
// by existing deployments (GOOGLE_ACCESS_TOKEN, GOOGLE_CALENDAR_ID, PORT, ...).
package config
