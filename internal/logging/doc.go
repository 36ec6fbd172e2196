// Package logging provides structured logging helpers built on log/slog.
//
// It fixes the attribute keys used across the server, builds the process
// logger from configuration, and keeps patient data and credentials out of
// log lines:
//
//	logger := logging.WithTool(slog.Default(), "book_appointment")
//	logger.Info("appointment booked",
//	    logging.EventID(id),
//	    logging.UserHash(patientEmail))
//
// Patient emails are hashed with AnonymizeEmail and OAuth tokens are reduced
// to a length indicator with SanitizeToken.
package logging
