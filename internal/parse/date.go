package parse

import (
	"regexp"
	"strconv"
	"time"
)

var serialRe = regexp.MustCompile(`^\d{5}(\.\d+)?$`)

// excelEpoch is day zero of the 1900 date system as used by spreadsheet
// applications, accounting for the phantom 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Date converts the value of a numeric completion-date cell. Spreadsheet
// serial numbers (unformatted date cells) become YYYY-MM-DD; anything else
// is returned as cleaned text. Callers pass text cells through unchanged.
func Date(raw string) string {
	s := Value(raw)
	if !serialRe.MatchString(s) {
		return s
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	days := int(serial)
	return excelEpoch.AddDate(0, 0, days).Format("2006-01-02")
}
