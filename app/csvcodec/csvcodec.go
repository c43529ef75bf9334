// Package csvcodec implements the CSV interchange format for job records.
// The format is deliberately lenient on import: columns are located by header
// keywords in any order, unknown columns are ignored, malformed rows are
// silently dropped and bad dates degrade to an absent date. encoding/csv is
// too strict for this contract, so both directions are hand-rolled.
package csvcodec

import (
	"strings"
	"time"

	"jobtrack/app/store"
)

// Header is the fixed six-column export header
const Header = "Company,Role,Link,Applied,Date,Notes"

// exportDateLayout is the normalized date-only export form. Time-of-day and
// zone are lost on export, a known property of the format.
const exportDateLayout = "2006-01-02"

// dateLayouts accepted on import, tried in order
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
}

// Serialize renders records as CSV text, one line per record after the fixed
// header. Applied renders as Yes/No, a zero date as empty.
func Serialize(records []store.JobRecord) string {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteByte('\n')

	for _, rec := range records {
		applied := "No"
		if rec.Applied {
			applied = "Yes"
		}
		date := ""
		if !rec.Date.IsZero() {
			date = rec.Date.Format(exportDateLayout)
		}

		fields := []string{rec.Company, rec.Role, rec.Link, applied, date, rec.Notes}
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(escape(f))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// escape wraps a field in double quotes, doubling internal quotes, iff it
// contains a comma, quote or newline
func escape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// colIndex maps record fields to header column positions, -1 when the header
// lacks the keyword (such fields read empty for every row)
type colIndex struct {
	company, role, link, applied, date, notes int
}

// Parse converts CSV text to candidate records. The first non-empty row is the
// header; rows whose company or role resolves empty are discarded. Returned
// records carry no id, the store stamps fresh ids when the batch is imported.
func Parse(text string) []store.JobRecord {
	rows := splitRows(text)
	if len(rows) < 2 {
		return nil
	}
	idx := headerIndex(rows[0])

	var res []store.JobRecord
	for _, row := range rows[1:] {
		rec := store.JobRecord{
			Company: strings.TrimSpace(cell(row, idx.company)),
			Role:    strings.TrimSpace(cell(row, idx.role)),
			Link:    strings.TrimSpace(cell(row, idx.link)),
			Notes:   strings.TrimSpace(cell(row, idx.notes)),
		}
		if rec.Company == "" || rec.Role == "" {
			continue // silently dropped, no skip count reported
		}

		applied := strings.ToLower(strings.TrimSpace(cell(row, idx.applied)))
		rec.Applied = strings.HasPrefix(applied, "y") || applied == "true"

		if d := strings.TrimSpace(cell(row, idx.date)); d != "" {
			rec.Date = parseDate(d) // zero time when unparseable
		}
		res = append(res, rec)
	}
	return res
}

// splitRows scans text into rows of unquoted cells. A double quote toggles
// in-quotes mode which suppresses both comma- and newline-splitting, and a
// doubled quote inside a quoted field unescapes to one literal quote. Blank
// lines are dropped, CRLF and LF both terminate rows.
func splitRows(text string) [][]string {
	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false

	endRow := func() {
		row = append(row, field.String())
		field.Reset()
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			row = nil // blank line
			return
		}
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			row = append(row, field.String())
			field.Reset()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRow()
		case '\n':
			endRow()
		default:
			field.WriteByte(c)
		}
	}
	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return rows
}

// headerIndex locates each expected keyword by case-insensitive substring
// match against the header cells. Input column order is arbitrary; a header
// with zero matches still yields a valid (all -1) mapping.
func headerIndex(header []string) colIndex {
	find := func(key string) int {
		for i, h := range header {
			if strings.Contains(strings.ToLower(h), key) {
				return i
			}
		}
		return -1
	}
	return colIndex{
		company: find("company"),
		role:    find("role"),
		link:    find("link"),
		applied: find("applied"),
		date:    find("date"),
		notes:   find("note"),
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
