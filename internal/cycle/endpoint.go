// Package cycle tracks per-endpoint harvest history across runs.
package cycle

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"
)

// ErrTimestampOrder indicates an endpoint whose harvested timestamp is ahead
// of its attempted timestamp.
var ErrTimestampOrder = errors.New("harvested timestamp after attempted timestamp")

// Timestamp is an ISO-8601 date-time stored as an XML attribute. The zero
// value marshals to an empty attribute.
type Timestamp struct {
	time.Time
}

// MarshalXMLAttr implements xml.MarshalerAttr.
func (t Timestamp) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if t.IsZero() {
		return xml.Attr{Name: name, Value: ""}, nil
	}

	return xml.Attr{Name: name, Value: t.UTC().Format(time.RFC3339)}, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (t *Timestamp) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		t.Time = time.Time{}

		return nil
	}

	parsed, err := time.Parse(time.RFC3339, attr.Value)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", attr.Value, err)
	}

	t.Time = parsed

	return nil
}

// Endpoint is the persistent cycle-level record of one OAI endpoint.
// Attempted is set on every harvest attempt; Harvested only on success, so
// the two are equal exactly when the last attempt succeeded.
type Endpoint struct {
	URI              string    `xml:"URI,attr"`
	Group            string    `xml:"group,attr,omitempty"`
	Blocked          bool      `xml:"blocked,attr"`
	Retry            bool      `xml:"retry,attr"`
	AllowIncremental bool      `xml:"allowIncrementalHarvest,attr"`
	Attempted        Timestamp `xml:"attempted,attr"`
	Harvested        Timestamp `xml:"harvested,attr"`
}

// Validate checks the endpoint's timestamp invariant.
func (e *Endpoint) Validate() error {
	if e.Harvested.After(e.Attempted.Time) {
		return fmt.Errorf("%w: %s", ErrTimestampOrder, e.URI)
	}

	return nil
}

// LastAttemptSucceeded reports whether the most recent attempt ended in a
// successful harvest.
func (e *Endpoint) LastAttemptSucceeded() bool {
	return !e.Attempted.IsZero() && e.Attempted.Equal(e.Harvested.Time)
}
