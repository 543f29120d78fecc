package parse

import (
	"regexp"
	"strings"
)

// Canonical field names of a machine record as they appear in JSON and in
// machine-readable spreadsheet headers.
const (
	FieldNo           = "no"
	FieldIDMsn        = "idMsn"
	FieldAlamat       = "alamat"
	FieldPengelola    = "pengelola"
	FieldPeriodePM    = "periodePM"
	FieldTglSelesaiPM = "tglSelesaiPM"
	FieldStatus       = "status"
	FieldTeknisi      = "teknisi"
)

// Column is one spreadsheet column: its human-readable label and the
// machine-readable field name it maps to.
type Column struct {
	Label string
	Field string
}

// ExportColumns is the fixed column order of exported sheets.
var ExportColumns = []Column{
	{Label: "No", Field: FieldNo},
	{Label: "Id Msn", Field: FieldIDMsn},
	{Label: "Alamat", Field: FieldAlamat},
	{Label: "Pengelola", Field: FieldPengelola},
	{Label: "Periode PM", Field: FieldPeriodePM},
	{Label: "Tgl Selesai PM", Field: FieldTglSelesaiPM},
	{Label: "Status", Field: FieldStatus},
	{Label: "Teknisi", Field: FieldTeknisi},
}

var (
	spaceRe = regexp.MustCompile(`\s+`)

	byLabel = map[string]string{}
	byField = map[string]string{}
)

func init() {
	for _, c := range ExportColumns {
		byLabel[c.Label] = c.Field
		byField[c.Field] = c.Field
	}
}

// Header resolves a spreadsheet header cell. It returns the canonical field
// name and whether the header used the human-readable label. Labels match
// exactly after whitespace is collapsed ("Id  Msn" is "Id Msn"); field names
// match exactly. ok is false for unknown headers.
func Header(raw string) (field string, human bool, ok bool) {
	h := Cell(raw)
	if f, found := byLabel[h]; found {
		return f, true, true
	}
	if f, found := byField[h]; found {
		return f, false, true
	}
	return "", false, false
}

// Cell trims a header cell and collapses inner runs of whitespace, including
// non-breaking spaces pasted from other documents.
func Cell(raw string) string {
	s := strings.ReplaceAll(raw, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Value cleans a data cell. Only surrounding whitespace is trimmed and
// non-breaking spaces become plain spaces; line breaks and repeated spaces
// inside the value are kept as entered.
func Value(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
}
