package observation

import (
	"math"
	"testing"
)

func TestParseGateVerdict(t *testing.T) {
	cases := []struct {
		in   string
		want GateVerdict
	}{
		{"allow", GateAllow},
		{"hold", GateHold},
		{"discard", GateDiscard},
		{"", GateAllow},
		{"garbage", GateAllow},
	}
	for _, tc := range cases {
		if got := ParseGateVerdict(tc.in); got != tc.want {
			t.Errorf("ParseGateVerdict(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReconstructSanitizesInput(t *testing.T) {
	o := Reconstruct("id", "text", 100, false, -5, 3.0, GateAllow, "", 0, 0)
	if o.RecallCount() != 0 {
		t.Errorf("recallCount = %d, want floored at 0", o.RecallCount())
	}
	if o.RetrievalPriority() != 1 {
		t.Errorf("priority = %v, want clamped to 1", o.RetrievalPriority())
	}

	neg := Reconstruct("id", "text", 100, false, 0, -7, GateAllow, "", 0, 0)
	if neg.RetrievalPriority() != -1 {
		t.Errorf("priority = %v, want clamped to -1", neg.RetrievalPriority())
	}

	nan := Reconstruct("id", "text", 100, false, 0, math.NaN(), GateAllow, "", 0, 0)
	if nan.RetrievalPriority() != 0 {
		t.Errorf("priority = %v, want NaN mapped to 0", nan.RetrievalPriority())
	}
}
