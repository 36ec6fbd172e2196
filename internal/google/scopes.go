package google

// CalendarScope grants read/write access to the calendars of the account.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// DefaultOAuthScopes are the scopes requested when refreshing tokens.
var DefaultOAuthScopes = []string{
	CalendarScope,
}
