package workflow

import "testing"

func TestFindEdgeRejectsDraftToSent(t *testing.T) {
	if _, ok := FindEdge(KindEstimate, EstimateDraft, EstimateSent); ok {
		t.Fatal("draft -> sent must not be a legal estimate transition")
	}
}

func TestFindEdgeHappyPath(t *testing.T) {
	path := []Status{EstimateDraft, EstimateInternalReview, EstimateReadyToSend, EstimateSent, EstimateAccepted, EstimateWon}
	for i := 0; i < len(path)-1; i++ {
		if _, ok := FindEdge(KindEstimate, path[i], path[i+1]); !ok {
			t.Fatalf("expected edge %s -> %s", path[i], path[i+1])
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []Status{EstimateWon, EstimateLost, EstimateArchived} {
		if !Terminal(KindEstimate, status) {
			t.Fatalf("%s should be terminal", status)
		}
	}
	if Terminal(KindEstimate, EstimateDraft) {
		t.Fatal("draft should not be terminal")
	}
	for _, status := range []Status{VariationApproved, VariationRejected, VariationWithdrawn} {
		if !Terminal(KindVariation, status) {
			t.Fatalf("variation %s should be terminal", status)
		}
	}
}

func TestNormalizeDefaultsToDraft(t *testing.T) {
	if Normalize("") != EstimateDraft {
		t.Fatal("unset status must normalize to draft")
	}
	if Normalize(EstimateSent) != EstimateSent {
		t.Fatal("set status must pass through")
	}
}

func TestLegacyBridges(t *testing.T) {
	if _, ok := FindEdge(KindEstimate, EstimatePending, EstimateDraft); !ok {
		t.Fatal("legacy pending -> draft bridge missing")
	}
	if _, ok := FindEdge(KindEstimate, EstimateQuoted, EstimateSent); !ok {
		t.Fatal("legacy quoted -> sent bridge missing")
	}
}
