package alert

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusNew, StatusAcknowledged, true},
		{StatusNew, StatusResolved, true},
		{StatusNew, StatusFalseAlarm, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAcknowledged, StatusFalseAlarm, false},
		{StatusAcknowledged, StatusNew, false},
		{StatusResolved, StatusNew, false},
		{StatusResolved, StatusAcknowledged, false},
		{StatusFalseAlarm, StatusResolved, false},
		{StatusNew, StatusNew, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusAcknowledged, StatusResolved, StatusFalseAlarm} {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidStatus("ESCALATED") {
		t.Error("unknown status accepted")
	}
}

func TestSeverityWireValues(t *testing.T) {
	cases := map[Severity]string{
		SeverityLow:    "LOW",
		SeverityMedium: "MEDIUM",
		SeverityHigh:   "HIGH",
	}
	for sev, want := range cases {
		if string(sev) != want {
			t.Errorf("severity %q, want %q", sev, want)
		}
	}
}
