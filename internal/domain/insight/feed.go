package insight

import (
	"fmt"
	"sort"

	"github.com/okian/pulselog/internal/domain/model"
)

// Groups buckets insights by severity for display.
type Groups struct {
	Red    []model.StoredInsight `json:"red"`
	Yellow []model.StoredInsight `json:"yellow"`
	Green  []model.StoredInsight `json:"green"`
}

// GeneratedID is the identity given to an insight that has not been stored.
func GeneratedID(ins model.Insight) string {
	return fmt.Sprintf("generated-%s-%d", ins.Type, ins.CreatedAt.Unix())
}

// Merge combines freshly generated insights with stored ones. Entries with the
// same type and explanation collapse into the newest; the result is sorted by
// creation time, newest first.
func Merge(athleteID string, fresh []model.Insight, stored []model.StoredInsight) []model.StoredInsight {
	type key struct {
		t   model.InsightType
		exp string
	}
	newest := make(map[key]model.StoredInsight, len(fresh)+len(stored))
	add := func(si model.StoredInsight) {
		k := key{si.Type, si.Explanation}
		if cur, ok := newest[k]; !ok || si.CreatedAt.After(cur.CreatedAt) {
			newest[k] = si
		}
	}
	for _, ins := range fresh {
		add(model.StoredInsight{ID: GeneratedID(ins), AthleteID: athleteID, Insight: ins})
	}
	for _, si := range stored {
		add(si)
	}

	out := make([]model.StoredInsight, 0, len(newest))
	for _, si := range newest {
		out = append(out, si)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if ri, rj := rank(out[i].Type), rank(out[j].Type); ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GroupBySeverity splits a merged feed, preserving order within each bucket.
func GroupBySeverity(feed []model.StoredInsight) Groups {
	g := Groups{
		Red:    []model.StoredInsight{},
		Yellow: []model.StoredInsight{},
		Green:  []model.StoredInsight{},
	}
	for _, si := range feed {
		switch si.Severity {
		case model.SeverityRed:
			g.Red = append(g.Red, si)
		case model.SeverityYellow:
			g.Yellow = append(g.Yellow, si)
		default:
			g.Green = append(g.Green, si)
		}
	}
	return g
}

func rank(t model.InsightType) int {
	for i, known := range model.PriorityOrder {
		if t == known {
			return i
		}
	}
	return len(model.PriorityOrder)
}
