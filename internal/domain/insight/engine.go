// Package insight turns a caller-supplied training snapshot into typed,
// severity-ranked and fully explained insights.
//
// The package is stateless and performs no I/O. Every function may be called
// concurrently. Callers pass one "now" per evaluation so that all day windows
// agree with each other.
package insight

import (
	"time"

	"github.com/okian/pulselog/internal/domain/model"
)

// Input is the snapshot an evaluation runs over. Profile may be nil.
type Input struct {
	Logs    []model.DailyLog
	Profile *model.AthleteProfile
	Meets   []model.Meet
}

// rules run in priority order; the output order is the priority order.
var rules = []Rule{PreMeet, EasyPace, Fatigue, SleepDebt, LoadSpike}

// Generate runs every rule and returns the insights that fired, most urgent first.
// An empty log history yields an empty list without evaluating any rule.
func Generate(in Input, now time.Time) []model.Insight {
	insights := make([]model.Insight, 0, len(rules))
	if len(in.Logs) == 0 {
		return insights
	}
	for _, rule := range rules {
		if ins, ok := rule(in, now); ok {
			insights = append(insights, ins)
		}
	}
	return insights
}

// Priority picks the first insight by type priority. Lists merged from other
// sources may be unordered, so the type order is applied rather than the
// list order; the first element is the fallback when no known type is present.
func Priority(insights []model.Insight) (model.Insight, bool) {
	if len(insights) == 0 {
		return model.Insight{}, false
	}
	for _, t := range model.PriorityOrder {
		for _, ins := range insights {
			if ins.Type == t {
				return ins, true
			}
		}
	}
	return insights[0], true
}

// Readiness is the severity of the priority insight, green when there is none.
func Readiness(insights []model.Insight) model.Severity {
	ins, ok := Priority(insights)
	if !ok {
		return model.SeverityGreen
	}
	return ins.Severity
}
