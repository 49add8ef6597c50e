package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// InsightType names the rule that produced an insight.
type InsightType string

// Insight types in priority order.
const (
	InsightPreMeet InsightType = "pre_meet"
	InsightPace    InsightType = "pace"
	InsightFatigue InsightType = "fatigue"
	InsightSleep   InsightType = "sleep"
	InsightLoad    InsightType = "load"
)

// PriorityOrder is the fixed ranking of insight types, most urgent first.
var PriorityOrder = []InsightType{InsightPreMeet, InsightPace, InsightFatigue, InsightSleep, InsightLoad}

// Valid reports whether t is a known insight type.
func (t InsightType) Valid() bool {
	for _, known := range PriorityOrder {
		if t == known {
			return true
		}
	}
	return false
}

// Severity is a closed, ordered readiness level: green < yellow < red.
type Severity uint8

// Severities. The zero value is green.
const (
	SeverityGreen Severity = iota
	SeverityYellow
	SeverityRed
)

var severityNames = [...]string{"green", "yellow", "red"}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool { return s <= SeverityRed }

// Worse reports whether s ranks above other.
func (s Severity) Worse(other Severity) bool { return s > other }

// ParseSeverity maps a severity name to its value.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityGreen, fmt.Errorf("unknown severity %q", name)
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Confidence expresses how directly the rule observed its inputs.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceLow      Confidence = "low"
)

// Insight is the engine's only output: a typed, explained fact about recent training.
// Explanation restates RawData; nothing in it is inferred beyond the rule.
type Insight struct {
	Type        InsightType    `json:"type"`
	Severity    Severity       `json:"severity"`
	Explanation string         `json:"explanation"`
	RawData     map[string]any `json:"raw_data"`
	Confidence  Confidence     `json:"confidence"`
	CreatedAt   time.Time      `json:"created_at"`
}

// StoredInsight is an insight with identity assigned outside the engine.
type StoredInsight struct {
	ID        string `json:"id"`
	AthleteID string `json:"athlete_id"`
	Insight
}

// EncodeRawData serialises raw data for storage.
func EncodeRawData(raw map[string]any) (string, error) {
	if raw == nil {
		return "{}", nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode raw data: %w", err)
	}
	return string(b), nil
}

// DecodeRawData reverses EncodeRawData. JSON numbers decode as float64.
func DecodeRawData(s string) (map[string]any, error) {
	raw := map[string]any{}
	if s == "" {
		return raw, nil
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode raw data: %w", err)
	}
	return raw, nil
}
