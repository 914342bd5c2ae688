package scoring

import "math"

// Status is the evaluation state of a single control item.
type Status string

const (
	StatusCompliant     Status = "compliant"
	StatusPartial       Status = "partial"
	StatusNonCompliant  Status = "non_compliant"
	StatusNotAssessed   Status = "not_assessed"
	StatusNotApplicable Status = "not_applicable"
)

// Valid reports whether s is one of the known item statuses.
func Valid(s Status) bool {
	switch s {
	case StatusCompliant, StatusPartial, StatusNonCompliant, StatusNotAssessed, StatusNotApplicable:
		return true
	}
	return false
}

// Score computes the compliance percentage for a set of item statuses.
// Items marked not_applicable are excluded from the scorable set; compliant
// items count fully and partial items count half. The result is rounded to
// two decimals. An empty scorable set scores 0.
func Score(statuses []Status) float64 {
	var scorable, weighted float64
	for _, s := range statuses {
		if s == StatusNotApplicable {
			continue
		}
		scorable++
		switch s {
		case StatusCompliant:
			weighted++
		case StatusPartial:
			weighted += 0.5
		}
	}
	if scorable == 0 {
		return 0
	}
	return math.Round(weighted/scorable*100*100) / 100
}
