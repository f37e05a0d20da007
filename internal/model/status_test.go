package model

import "testing"

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusNone, StatusDenylisted, StatusAllowlisted} {
		if got := StatusFromInt(s.Int()); got != s {
			t.Errorf("round trip %v -> %d -> %v", s, s.Int(), got)
		}
	}
}

func TestStatusFromIntUnknown(t *testing.T) {
	for _, v := range []int16{-1, 3, 99} {
		if got := StatusFromInt(v); got != StatusNone {
			t.Errorf("StatusFromInt(%d) = %v, want none", v, got)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if Status(7).Valid() {
		t.Error("Status(7) should not be valid")
	}
	if !StatusNone.Valid() {
		t.Error("StatusNone should be valid")
	}
}
