package reqerr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vormiaphp/vormiaquery/internal/sensitive"
)

const GenericMessage = "An unexpected error occurred. Please try again."

var (
	notNullMySQL    = regexp.MustCompile("Column '([^']+)' cannot be null")
	notNullPostgres = regexp.MustCompile(`null value in column "([^"]+)"`)
	duplicateEntry  = regexp.MustCompile(`Duplicate entry '([^']*)'(?: for key '([^']+)')?`)
)

// UserMessage returns text that is safe to show an end user.
//
// In production it is the top-level message, except for database errors
// and empty messages, which become GenericMessage. Outside production it is
// a summary that translates common database failures and lists validation
// fields.
func (e *RequestError) UserMessage() string {
	if e.production {
		if e.Message == "" || e.IsDatabaseError() {
			return GenericMessage
		}
		return e.Message
	}

	if e.IsDatabaseError() {
		return translateDatabase(e.Message)
	}

	if fields := e.ValidationErrors(); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], ", ")))
		}
		return fmt.Sprintf("%s (%s)", nonEmpty(e.Message, "Validation failed"), strings.Join(parts, "; "))
	}

	msg := nonEmpty(e.Message, GenericMessage)
	if e.Status > 0 {
		return fmt.Sprintf("%s [%d]", msg, e.Status)
	}
	return msg
}

func translateDatabase(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "foreign key constraint"):
		return "This record is linked to other data and cannot be changed or removed."
	case strings.Contains(lower, "duplicate entry") || strings.Contains(lower, "duplicate key"):
		if m := duplicateEntry.FindStringSubmatch(msg); m != nil && m[1] != "" {
			return fmt.Sprintf("A record with the value '%s' already exists.", m[1])
		}
		return "A record with this value already exists."
	case strings.Contains(lower, "cannot be null") || strings.Contains(lower, "not-null constraint"):
		if m := notNullMySQL.FindStringSubmatch(msg); m != nil {
			return fmt.Sprintf("The field '%s' is required.", m[1])
		}
		if m := notNullPostgres.FindStringSubmatch(msg); m != nil {
			return fmt.Sprintf("The field '%s' is required.", m[1])
		}
		return "A required field is missing."
	default:
		return "A database error occurred: " + sensitive.TrimPath(msg)
	}
}

// DebugView is a flat, sanitized description for logs and debug panels.
// Debug is omitted in production.
func (e *RequestError) DebugView() map[string]any {
	view := map[string]any{
		"message":   e.Message,
		"status":    e.Status,
		"code":      string(e.Code),
		"timestamp": e.Timestamp,
	}
	if e.Data != nil {
		view["data"] = e.Data
	}
	if e.Debug != nil && !e.production {
		view["debug"] = e.Debug
	}
	return view
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
