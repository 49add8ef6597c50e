package summary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/pulselog/internal/domain/model"
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
)

// severityWords maps vocabulary to the severity it implies.
var severityWords = map[string]model.Severity{
	"yellow":    model.SeverityYellow,
	"caution":   model.SeverityYellow,
	"red":       model.SeverityRed,
	"critical":  model.SeverityRed,
	"severe":    model.SeverityRed,
	"danger":    model.SeverityRed,
	"dangerous": model.SeverityRed,
	"alarming":  model.SeverityRed,
	"urgent":    model.SeverityRed,
}

// predictivePhrases are forecasts the engine never makes.
var predictivePhrases = []string{
	"will get injured",
	"will be injured",
	"you will",
	"is likely to",
	"are likely to",
	"predict",
	"guarantee",
}

// Guard checks that text only restates insights. Every number in text must
// appear in the insights or in extra; no word may imply a severity above the
// worst input severity; no forecasting phrase may appear.
func Guard(text string, insights []model.Insight, extra ...string) error {
	allowed := allowedNumbers(insights, extra)
	for _, tok := range numberPattern.FindAllString(text, -1) {
		if _, ok := allowed[canonical(tok)]; !ok {
			return fmt.Errorf("%w: number %s not present in insights", ErrRejected, tok)
		}
	}

	worst := model.SeverityGreen
	for _, ins := range insights {
		if ins.Severity.Worse(worst) {
			worst = ins.Severity
		}
	}
	lower := strings.ToLower(text)
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if sev, ok := severityWords[w]; ok && sev.Worse(worst) {
			return fmt.Errorf("%w: %q escalates beyond %s", ErrRejected, w, worst)
		}
	}
	for _, p := range predictivePhrases {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: forecasting phrase %q", ErrRejected, p)
		}
	}
	return nil
}

func allowedNumbers(insights []model.Insight, extra []string) map[string]struct{} {
	allowed := make(map[string]struct{})
	add := func(s string) {
		for _, tok := range numberPattern.FindAllString(s, -1) {
			allowed[canonical(tok)] = struct{}{}
		}
	}
	for _, ins := range insights {
		add(ins.Explanation)
		for _, v := range ins.RawData {
			add(fmt.Sprint(v))
		}
	}
	for _, e := range extra {
		add(e)
	}
	add(strconv.Itoa(len(insights)))
	return allowed
}

// canonical makes "8", "8.0" and "08" compare equal.
func canonical(tok string) string {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return tok
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
