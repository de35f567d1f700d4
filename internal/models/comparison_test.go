package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"zoned", `"2024-03-01T10:20:30Z"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"offset", `"2024-03-01T12:20:30+02:00"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"naive", `"2024-03-01T10:20:30"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"naive with micros", `"2024-03-01T10:20:30.123456"`, time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{"space separated", `"2024-03-01 10:20:30"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.in, err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, ts.Time, tt.want)
			}
		})
	}
}

func TestTimestampUnmarshalInvalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestComparisonCreatedWithoutTimestamp(t *testing.T) {
	var c Comparison
	if err := json.Unmarshal([]byte(`{"id":1,"entity1_id":2,"entity2_id":3,"selected_entity_id":2}`), &c); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !c.Created().IsZero() {
		t.Errorf("Created() = %v, want zero", c.Created())
	}
}
