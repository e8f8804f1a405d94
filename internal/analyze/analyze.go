package analyze

import "github.com/jaxxstorm/dnsdash/internal/model"

type OutcomeKind string

const (
	OutcomeCorrect    OutcomeKind = "CORRECT"
	OutcomePoisoned   OutcomeKind = "POISONED"
	OutcomeUnexpected OutcomeKind = "UNEXPECTED"
	OutcomeNoAnswer   OutcomeKind = "NO_ANSWER"
	OutcomeFailed     OutcomeKind = "FAILED"
)

// Expectation names the lab's genuine and forged addresses for the target host.
type Expectation struct {
	RealIP   string
	ForgedIP string
}

var LabExpectation = Expectation{RealIP: "10.5.0.10", ForgedIP: "10.5.0.99"}

type Outcome struct {
	Kind         OutcomeKind
	Summary      string
	EvidenceStep int
	Hints        []string
}

func Diagnose(outcome Outcome) model.Diagnosis {
	steps := []int{}
	if outcome.EvidenceStep >= 0 {
		steps = append(steps, outcome.EvidenceStep)
	}
	return model.Diagnosis{
		Classification: string(outcome.Kind),
		Summary:        outcome.Summary,
		EvidenceSteps:  steps,
		Hints:          outcome.Hints,
	}
}

// Classify judges a set of A-record addresses. A forged address wins over a
// genuine one because a poisoned cache may still carry the real record.
func Classify(exp Expectation, addrs []string) OutcomeKind {
	if len(addrs) == 0 {
		return OutcomeNoAnswer
	}
	sawReal := false
	for _, addr := range addrs {
		if exp.ForgedIP != "" && addr == exp.ForgedIP {
			return OutcomePoisoned
		}
		if exp.RealIP == "" || addr == exp.RealIP {
			sawReal = true
		}
	}
	if sawReal {
		return OutcomeCorrect
	}
	return OutcomeUnexpected
}

// ResolutionOutcome maps the backend's own verdict onto the same vocabulary.
func ResolutionOutcome(r model.Resolution) OutcomeKind {
	switch {
	case r.IsPoisoned:
		return OutcomePoisoned
	case r.IsCorrect:
		return OutcomeCorrect
	case r.ResolvedIP == "":
		return OutcomeNoAnswer
	default:
		return OutcomeUnexpected
	}
}
