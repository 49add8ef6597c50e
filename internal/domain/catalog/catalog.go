// Package catalog lists the track, cross-country and road events an athlete can
// select, with the time format their results are recorded in.
package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Category groups events by venue.
type Category string

// Event categories.
const (
	Track Category = "track"
	XC    Category = "xc"
	Road  Category = "road"
)

// TimeFormat is the shape of a recorded result.
type TimeFormat string

// Result time formats.
const (
	Seconds TimeFormat = "seconds" // SS.MS
	Minutes TimeFormat = "minutes" // MM:SS
	Hours   TimeFormat = "hours"   // H:MM:SS
)

// Event is one selectable event.
type Event struct {
	Value      string     `json:"value"`
	Label      string     `json:"label"`
	Category   Category   `json:"category"`
	TimeFormat TimeFormat `json:"time_format"`
}

var trackEvents = []Event{
	{"60m", "60m", Track, Seconds},
	{"100m", "100m", Track, Seconds},
	{"200m", "200m", Track, Seconds},
	{"400m", "400m", Track, Seconds},
	{"800m", "800m", Track, Minutes},
	{"1000m", "1000m", Track, Minutes},
	{"1500m", "1500m", Track, Minutes},
	{"mile", "Mile", Track, Minutes},
	{"3000m", "3000m", Track, Minutes},
	{"3200m", "3200m", Track, Minutes},
	{"5000m", "5000m", Track, Minutes},
	{"10000m", "10000m", Track, Minutes},
	{"110mh", "110mH", Track, Seconds},
	{"100h", "100H", Track, Seconds},
	{"400h", "400H", Track, Seconds},
	{"steeple", "Steeple", Track, Minutes},
	{"4x100", "4x100", Track, Seconds},
	{"4x400", "4x400", Track, Minutes},
}

var xcRoadEvents = []Event{
	{"5k", "5K", XC, Minutes},
	{"8k", "8K", XC, Minutes},
	{"10k", "10K", XC, Minutes},
	{"half_marathon", "Half Marathon", Road, Hours},
	{"marathon", "Marathon", Road, Hours},
}

var patterns = map[TimeFormat]*regexp.Regexp{
	Seconds: regexp.MustCompile(`^[0-9]{1,2}\.[0-9]{1,2}$`),
	Minutes: regexp.MustCompile(`^[0-9]{1,2}:[0-5][0-9]$`),
	Hours:   regexp.MustCompile(`^[0-9]{1,2}:[0-5][0-9]:[0-5][0-9]$`),
}

var byValue = func() map[string]Event {
	m := make(map[string]Event, len(trackEvents)+len(xcRoadEvents))
	for _, e := range All() {
		m[e.Value] = e
	}
	return m
}()

// All returns every event, track first.
func All() []Event {
	out := make([]Event, 0, len(trackEvents)+len(xcRoadEvents))
	out = append(out, trackEvents...)
	return append(out, xcRoadEvents...)
}

// Lookup finds an event by its code.
func Lookup(value string) (Event, bool) {
	e, ok := byValue[value]
	return e, ok
}

// Placeholder returns the input hint shown for an event's result field.
func Placeholder(e Event) string {
	switch e.TimeFormat {
	case Seconds:
		return "SS.MS (e.g., 10.50)"
	case Hours:
		return "H:MM:SS (e.g., 1:15:30)"
	default:
		if e.Value == "800m" {
			return "M:SS (e.g., 1:50)"
		}
		return "MM:SS (e.g., 15:30)"
	}
}

// ValidateResult checks that result matches the time format of event.
func ValidateResult(event, result string) error {
	e, ok := Lookup(event)
	if !ok {
		return fmt.Errorf("unknown event %q", event)
	}
	if !patterns[e.TimeFormat].MatchString(strings.TrimSpace(result)) {
		return fmt.Errorf("time %q for %s must match %s", result, e.Label, Placeholder(e))
	}
	return nil
}
