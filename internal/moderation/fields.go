package moderation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field names as they appear on rendered report messages. The ingestion path
// reads these back from message embeds, so both the display names and the
// canonical snake_case keys are accepted.
var fieldAliases = map[string]string{
	"Reporter UserID":   "reporter_id",
	"Reporter Nickname": "reporter_name",
	"Reported UserID":   "reported_id",
	"Reported Nickname": "reported_name",
	"Reason":            "report_reason",
	"Server Name":       "server",
	"UTC Timestamp":     "time",
}

// FieldsError describes everything wrong with an externally supplied field
// map: required fields that were absent and fields whose values could not be
// parsed. It is always returned in full so the upstream producer bug can be
// diagnosed from a single error.
type FieldsError struct {
	Missing []string
	Invalid map[string]string // field -> description of the bad value
}

func (e *FieldsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		keys := make([]string, 0, len(e.Invalid))
		for k := range e.Invalid {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("invalid %s: %s", k, e.Invalid[k]))
		}
	}
	return "report fields: " + strings.Join(parts, "; ")
}

func (e *FieldsError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

func (e *FieldsError) invalid(field, desc string) {
	if e.Invalid == nil {
		e.Invalid = make(map[string]string)
	}
	e.Invalid[field] = desc
}

// ReportFromFields builds a Report from a key/value map parsed out of an
// external rendered representation. Required fields must be present and
// well-formed; claimant is optional and defaults to absent. All problems are
// collected into one *FieldsError rather than failing on the first.
func ReportFromFields(fields map[string]string) (*Report, error) {
	canon := make(map[string]string, len(fields))
	for k, v := range fields {
		if alias, ok := fieldAliases[k]; ok {
			k = alias
		}
		canon[k] = v
	}

	ferr := &FieldsError{}
	need := func(key string) string {
		v, ok := canon[key]
		if !ok || v == "" {
			ferr.Missing = append(ferr.Missing, key)
		}
		return v
	}

	r := &Report{
		ReporterID:   need("reporter_id"),
		ReporterName: need("reporter_name"),
		ReportedID:   need("reported_id"),
		ReportedName: need("reported_name"),
		Reason:       need("report_reason"),
		Server:       need("server"),
		Time:         need("time"),
		Status:       StatusOpen,
		Location:     LocationSL,
	}

	if r.Time != "" {
		if _, err := time.Parse(time.RFC3339, r.Time); err != nil {
			ferr.invalid("time", fmt.Sprintf("not an ISO-8601 timestamp: %q", r.Time))
		}
	}
	if v, ok := canon["report_status"]; ok && v != "" {
		status, err := ParseReportStatus(v)
		if err != nil {
			ferr.invalid("report_status", err.Error())
		} else {
			r.Status = status
		}
	}
	if v, ok := canon["location"]; ok && v != "" {
		loc, err := ParseLocation(v)
		if err != nil {
			ferr.invalid("location", err.Error())
		} else {
			r.Location = loc
		}
	}
	if v, ok := canon["claimant"]; ok && v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			ferr.invalid("claimant", fmt.Sprintf("not a 64-bit identifier: %q", v))
		} else {
			r.Claimant = &id
		}
	}

	if !ferr.empty() {
		sort.Strings(ferr.Missing)
		return nil, ferr
	}
	return r, nil
}
