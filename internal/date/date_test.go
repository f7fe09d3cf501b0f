package date

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	d, err := Parse("2024-05-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != New(2024, time.May, 1) {
		t.Fatalf("unexpected date %v", d)
	}

	d, err = Parse("2024-05-01T18:30:00Z")
	if err != nil {
		t.Fatalf("parse timestamp: %v", err)
	}
	if d.String() != "2024-05-01" {
		t.Fatalf("expected truncated date, got %s", d)
	}

	if _, err := Parse("05/01/2024"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestParseRange(t *testing.T) {
	from, to, err := ParseRange("2024-01-01..2024-02-01")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if from == nil || to == nil || from.String() != "2024-01-01" || to.String() != "2024-02-01" {
		t.Fatalf("unexpected bounds %v %v", from, to)
	}

	from, to, err = ParseRange("..2024-02-01")
	if err != nil {
		t.Fatalf("parse open range: %v", err)
	}
	if from != nil || to == nil {
		t.Fatalf("expected open lower bound, got %v %v", from, to)
	}

	if _, _, err := ParseRange("2024-01-01"); err == nil {
		t.Fatal("expected error without separator")
	}
}

func TestWithin(t *testing.T) {
	lo := New(2024, time.January, 1)
	hi := New(2024, time.January, 31)

	cases := []struct {
		d    Date
		want bool
	}{
		{New(2024, time.January, 1), true},
		{New(2024, time.January, 31), true},
		{New(2023, time.December, 31), false},
		{New(2024, time.February, 1), false},
	}
	for _, tc := range cases {
		if got := tc.d.Within(&lo, &hi); got != tc.want {
			t.Errorf("%s within: got %v, want %v", tc.d, got, tc.want)
		}
	}
	if !New(1999, time.March, 3).Within(nil, &hi) {
		t.Error("open lower bound should accept any earlier date")
	}
}

func TestDaysUntil(t *testing.T) {
	d := New(2024, 2, 27)
	if got := d.DaysUntil(New(2024, 3, 2)); got != 4 {
		t.Errorf("across leap day = %d, want 4", got)
	}
	if got := d.DaysUntil(New(2024, 2, 20)); got != -7 {
		t.Errorf("earlier = %d, want -7", got)
	}
	if got := d.DaysUntil(d); got != 0 {
		t.Errorf("same day = %d", got)
	}
}
