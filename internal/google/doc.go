// Package google builds OAuth2 token sources for the Google Calendar API.
//
// Credentials come from the process configuration (access token, refresh
// token and the OAuth client pair). The token source always refreshes on first
// use so a stale access token in the environment is never sent upstream.
package google
