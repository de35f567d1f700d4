package models

import (
	"fmt"
	"strings"
	"time"
)

// Comparison is one recorded pairwise judgment between two entities.
type Comparison struct {
	ID               int        `json:"id"`
	Entity1ID        int        `json:"entity1_id"`
	Entity2ID        int        `json:"entity2_id"`
	SelectedEntityID int        `json:"selected_entity_id"`
	CreatedAt        *Timestamp `json:"created_at,omitempty"`
}

// Created returns the creation time, or the zero time when the server omitted it.
func (c Comparison) Created() time.Time {
	if c.CreatedAt == nil {
		return time.Time{}
	}
	return c.CreatedAt.Time
}

// ComparisonInput is the payload for recording a comparison.
// Timestamp is client-side bookkeeping only and never sent.
type ComparisonInput struct {
	Entity1ID        int       `json:"entity1_id"`
	Entity2ID        int       `json:"entity2_id"`
	SelectedEntityID int       `json:"selected_entity_id"`
	Timestamp        time.Time `json:"-"`
}

// timestampLayouts are tried in order. The server emits naive ISO timestamps
// for SQLite-backed deployments and zoned ones for Postgres.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp is a time.Time that accepts timestamps with or without a zone.
// Zoneless values are interpreted as UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
