package auditreport

import (
	"regexp"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Sanitize turns a clinic name into a filename fragment: whitespace runs,
// Unicode spaces included, become "_" and anything outside [A-Za-z0-9_] is dropped.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(whitespaceRun.ReplaceAllString(name, "_"), "")
}

// Filename is the download name of a report generated on date.
func Filename(clinic string, date time.Time) string {
	var b strings.Builder
	b.WriteString("Audit_NoShows_")
	b.WriteString(Sanitize(clinic))
	b.WriteString("_")
	b.WriteString(date.Format(time.DateOnly))
	b.WriteString(".pdf")
	return b.String()
}
