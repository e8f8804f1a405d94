package analyze

import (
	"testing"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

func TestDiagnoseEvidenceSteps(t *testing.T) {
	d := Diagnose(Outcome{Kind: OutcomePoisoned, Summary: "forged answer", EvidenceStep: 1})
	if d.Classification != "POISONED" {
		t.Fatalf("expected POISONED, got %s", d.Classification)
	}
	if len(d.EvidenceSteps) != 1 || d.EvidenceSteps[0] != 1 {
		t.Fatalf("expected evidence step 1")
	}
}

func TestDiagnoseNoEvidence(t *testing.T) {
	d := Diagnose(Outcome{Kind: OutcomeFailed, Summary: "timeout", EvidenceStep: -1})
	if len(d.EvidenceSteps) != 0 {
		t.Fatalf("expected no evidence steps")
	}
}

func TestClassifyLabAddresses(t *testing.T) {
	cases := map[string]struct {
		addrs []string
		want  OutcomeKind
	}{
		"genuine":   {[]string{"10.5.0.10"}, OutcomeCorrect},
		"forged":    {[]string{"10.5.0.99"}, OutcomePoisoned},
		"mixed":     {[]string{"10.5.0.10", "10.5.0.99"}, OutcomePoisoned},
		"other":     {[]string{"192.0.2.1"}, OutcomeUnexpected},
		"no answer": {nil, OutcomeNoAnswer},
	}
	for name, tc := range cases {
		if got := Classify(LabExpectation, tc.addrs); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", name, tc.want, got)
		}
	}
}

func TestClassifyWithoutRealIPAcceptsAnyNonForged(t *testing.T) {
	if got := Classify(Expectation{ForgedIP: "10.5.0.99"}, []string{"203.0.113.7"}); got != OutcomeCorrect {
		t.Fatalf("expected CORRECT, got %s", got)
	}
}

func TestResolutionOutcome(t *testing.T) {
	if got := ResolutionOutcome(model.Resolution{ResolvedIP: "10.5.0.99", IsPoisoned: true}); got != OutcomePoisoned {
		t.Fatalf("expected POISONED, got %s", got)
	}
	if got := ResolutionOutcome(model.Resolution{}); got != OutcomeNoAnswer {
		t.Fatalf("expected NO_ANSWER, got %s", got)
	}
}
