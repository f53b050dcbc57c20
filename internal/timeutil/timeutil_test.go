package timeutil

import (
	"testing"
	"time"
)

func TestToCanonical_Idempotent(t *testing.T) {
	n, err := NewNormalizer("Asia/Seoul")
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	inputs := []time.Time{
		time.Date(2024, 3, 15, 9, 31, 2, 0, time.UTC),
		time.Date(2024, 3, 15, 9, 31, 2, 500, time.FixedZone("EST", -5*3600)),
		Canonical(2024, 3, 15, 9, 31, 2),
		time.Now(),
	}

	for _, in := range inputs {
		once := n.ToCanonical(in)
		twice := n.ToCanonical(once)
		if !once.Equal(twice) {
			t.Errorf("ToCanonical not idempotent: %v != %v (input %v)", once, twice, in)
		}
		if !IsCanonical(once) {
			t.Errorf("ToCanonical(%v) did not produce a canonical value", in)
		}
	}
}

func TestToCanonical_WallClock(t *testing.T) {
	n, err := NewNormalizer("Asia/Seoul")
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	// 00:31:02 UTC is 09:31:02 KST.
	in := time.Date(2024, 3, 15, 0, 31, 2, 0, time.UTC)
	got := n.ToCanonical(in)
	want := Canonical(2024, 3, 15, 9, 31, 2)

	if !got.Equal(want) {
		t.Errorf("ToCanonical = %v, want %v", got, want)
	}
}

func TestToCanonical_PreservesCanonicalWall(t *testing.T) {
	n, _ := NewNormalizer("Asia/Seoul")

	in := Canonical(2024, 3, 15, 9, 31, 2)
	got := n.ToCanonical(in)
	if got.Hour() != 9 || got.Minute() != 31 || got.Second() != 2 {
		t.Errorf("canonical input was shifted: got %v", got)
	}
}

func TestFloorToMinute(t *testing.T) {
	in := Canonical(2024, 3, 15, 9, 31, 2)
	got := FloorToMinute(in)
	want := Canonical(2024, 3, 15, 9, 31, 0)
	if !got.Equal(want) {
		t.Errorf("FloorToMinute = %v, want %v", got, want)
	}

	// Already floored values are unchanged.
	if again := FloorToMinute(got); !again.Equal(got) {
		t.Errorf("FloorToMinute not idempotent: %v != %v", again, got)
	}
}

func TestParseQuoteTime(t *testing.T) {
	got, err := ParseQuoteTime("20240315", "093102")
	if err != nil {
		t.Fatalf("ParseQuoteTime failed: %v", err)
	}
	want := Canonical(2024, 3, 15, 9, 31, 2)
	if !got.Equal(want) {
		t.Errorf("ParseQuoteTime = %v, want %v", got, want)
	}
	if !IsCanonical(got) {
		t.Error("ParseQuoteTime did not produce a canonical value")
	}
}

func TestParseQuoteTime_Malformed(t *testing.T) {
	cases := []struct{ date, clock string }{
		{"", ""},
		{"2024031", "093102"},
		{"20240315", "9312"},
		{"20241315", "093102"}, // month 13
		{"abcdefgh", "093102"},
	}
	for _, c := range cases {
		if _, err := ParseQuoteTime(c.date, c.clock); err == nil {
			t.Errorf("ParseQuoteTime(%q, %q) succeeded, want error", c.date, c.clock)
		}
	}
}

func TestNewNormalizer_BadZone(t *testing.T) {
	if _, err := NewNormalizer("Not/AZone"); err == nil {
		t.Error("NewNormalizer accepted an unknown zone")
	}
}
