package types

import (
	"slices"
	"sort"
)

// Well-known diagnostics labels.
const (
	DiagConnectionID           = "connection_id"
	DiagPublisherConnectionID  = "publisher_connection_id"
	DiagSubscriberConnectionID = "subscriber_connection_id"
)

var wellKnownDiagnostics = []string{
	DiagConnectionID,
	DiagPublisherConnectionID,
	DiagSubscriberConnectionID,
}

// Diagnostics is an open label -> value record attached to a passing result.
// A fresh record is created for every scenario run.
type Diagnostics map[string]string

// Set records value under label. Empty values are ignored so that absent
// information is omitted from the report rather than printed blank.
func (d Diagnostics) Set(label, value string) {
	if value == "" {
		return
	}
	d[label] = value
}

// Keys returns the labels in report order: the well-known labels first, then
// any other labels sorted alphabetically.
func (d Diagnostics) Keys() []string {
	keys := make([]string, 0, len(d))
	for _, k := range wellKnownDiagnostics {
		if _, ok := d[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range d {
		if !slices.Contains(wellKnownDiagnostics, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
