// Package pace converts a race performance into an easy training pace band.
//
// All functions are pure. Malformed input is reported through a false ok value,
// never an error: missing or unparseable data means "no range available".
package pace

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Easy pace multipliers applied to race pace.
const (
	easySlowFactor = 1.5
	easyFastFactor = 1.3
)

// VDOT quadratic coefficients shared by every supported event.
const (
	vdotBase   = 29.54
	vdotLinear = 5.012
	vdotSquare = 0.1125
)

const secondsPerMinute = 60

// event describes a race distance the model can project from.
type event struct {
	miles       float64
	vdotDivisor float64
}

var supportedEvents = map[string]event{
	"5k":   {miles: 3.10686, vdotDivisor: 1000},
	"10k":  {miles: 6.21371, vdotDivisor: 2000},
	"mile": {miles: 1, vdotDivisor: 1609},
}

// Range is an easy-pace band in seconds per mile.
// Min is the slow bound and Max the fast bound, so Min >= Max.
type Range struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	VDOT float64 `json:"vdot"`
}

// TooFast reports whether a pace in seconds per mile is quicker than the fast bound.
func (r Range) TooFast(seconds int) bool { return seconds < r.Max }

// String renders the band slow-to-fast, e.g. "7:29–6:29".
func (r Range) String() string { return Format(r.Min) + "–" + Format(r.Max) }

// Supported reports whether the pace model can project from event.
func Supported(event string) bool {
	_, ok := supportedEvents[event]
	return ok
}

// EstimateEasyRange derives the easy-pace band from the best time recorded for
// primaryEvent. It returns false when the event is unsupported or has no valid time.
func EstimateEasyRange(raceTimes map[string]string, primaryEvent string) (Range, bool) {
	ev, ok := supportedEvents[primaryEvent]
	if !ok {
		return Range{}, false
	}
	raw, ok := raceTimes[primaryEvent]
	if !ok {
		return Range{}, false
	}
	total, ok := ParseRaceTime(raw)
	if !ok {
		return Range{}, false
	}

	racePace := total / ev.miles
	return Range{
		Min:  int(math.Round(racePace * easySlowFactor)),
		Max:  int(math.Round(racePace * easyFastFactor)),
		VDOT: vdot(total, ev),
	}, true
}

func vdot(totalSeconds float64, ev event) float64 {
	return vdotBase + (vdotLinear*totalSeconds-vdotSquare*totalSeconds*totalSeconds)/ev.vdotDivisor
}

// ParseRaceTime parses "M:SS" (seconds may carry a fraction, "4:05.3") into seconds.
func ParseRaceTime(s string) (float64, bool) {
	minutes, rest, ok := splitClock(s)
	if !ok {
		return 0, false
	}
	secs, err := strconv.ParseFloat(rest, 64)
	if err != nil || secs < 0 || secs >= secondsPerMinute || math.IsNaN(secs) {
		return 0, false
	}
	total := float64(minutes*secondsPerMinute) + secs
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// ParsePace parses an "MM:SS" pace into whole seconds per mile.
func ParsePace(s string) (int, bool) {
	minutes, rest, ok := splitClock(s)
	if !ok {
		return 0, false
	}
	secs, err := strconv.Atoi(rest)
	if err != nil || secs < 0 || secs >= secondsPerMinute {
		return 0, false
	}
	total := minutes*secondsPerMinute + secs
	if total <= 0 {
		return 0, false
	}
	return total, true
}

func splitClock(s string) (int, string, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", false
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return 0, "", false
	}
	return minutes, parts[1], true
}

// Format renders seconds as M:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/secondsPerMinute, seconds%secondsPerMinute)
}
