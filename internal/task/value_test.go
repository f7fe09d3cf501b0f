package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
)

var testMembers = Members{
	{ID: "u1", Name: "Ana Lima", Initials: "AL", Color: "#f00"},
	{ID: "u2", Name: "Bruno Reis", Initials: "BR", Color: "#0f0"},
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", []string{}, []User{}, []any{}}
	for _, v := range empty {
		if !IsEmpty(v) {
			t.Errorf("expected %#v to be empty", v)
		}
	}
	present := []any{"x", 0.0, false, []string{"a"}, User{ID: "u1"}, date.New(2024, time.May, 1)}
	for _, v := range present {
		if IsEmpty(v) {
			t.Errorf("expected %#v to be present", v)
		}
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hello", "hello"},
		{2.5, "2.5"},
		{3.0, "3"},
		{true, "true"},
		{date.New(2024, time.January, 9), "2024-01-09"},
		{User{ID: "u1", Name: "Ana Lima"}, "Ana Lima"},
		{[]User{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Bruno"}}, "Ana, Bruno"},
		{[]string{"dub", "mix"}, "dub,mix"},
	}
	for _, tc := range cases {
		if got := String(tc.in); got != tc.want {
			t.Errorf("String(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoerce(t *testing.T) {
	got, err := Coerce(TypePerson, "u2", testMembers)
	if err != nil {
		t.Fatalf("coerce person: %v", err)
	}
	if diff := cmp.Diff(testMembers[1], got); diff != "" {
		t.Errorf("person mismatch (-want +got):\n%s", diff)
	}

	got, err = Coerce(TypePeople, []any{"u1", "ghost"}, testMembers)
	if err != nil {
		t.Fatalf("coerce people: %v", err)
	}
	want := []User{testMembers[0], {ID: "ghost", Name: "ghost"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("people mismatch (-want +got):\n%s", diff)
	}

	got, err = Coerce(TypeMultiSelect, "dub, mix ,", nil)
	if err != nil {
		t.Fatalf("coerce multi-select: %v", err)
	}
	if diff := cmp.Diff([]string{"dub", "mix"}, got); diff != "" {
		t.Errorf("multi-select mismatch (-want +got):\n%s", diff)
	}

	got, err = Coerce(TypeNumber, 3, nil)
	if err != nil || got != 3.0 {
		t.Fatalf("coerce number: got %v, %v", got, err)
	}

	got, err = Coerce(TypeDate, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), nil)
	if err != nil || got != date.New(2024, time.May, 1) {
		t.Fatalf("coerce date from time: got %v, %v", got, err)
	}

	got, err = Coerce(TypeText, "", nil)
	if err != nil || got != nil {
		t.Fatalf("empty input should coerce to nil, got %v, %v", got, err)
	}

	if _, err := Coerce(TypeBoolean, "maybe", nil); !clierr.HasCode(err, clierr.InvalidValue) {
		t.Fatalf("expected INVALID_VALUE, got %v", err)
	}
	if _, err := Coerce(TypeDate, "yesterday", nil); !clierr.HasCode(err, clierr.InvalidDate) {
		t.Fatalf("expected INVALID_DATE, got %v", err)
	}
}

func TestTaskSetDropsEmpty(t *testing.T) {
	tk := Task{ID: "1"}
	tk.Set("services", []string{"dub"})
	if tk.Get("services") == nil {
		t.Fatal("expected services to be set")
	}
	tk.Set("services", []string{})
	if _, ok := tk.Fields["services"]; ok {
		t.Fatal("empty value should delete the field")
	}
	if tk.Get(FieldID) != "1" {
		t.Fatal("id pseudo-field should resolve to the task id")
	}
	if tk.Get(FieldTitle) != nil {
		t.Fatal("blank title should read as absent")
	}
}

func TestCloneIsolatesFields(t *testing.T) {
	orig := Task{ID: "1", Fields: map[string]any{"status": "done"}}
	cp := orig.Clone()
	cp.Set("status", "working")
	if orig.Get("status") != "done" {
		t.Fatalf("clone mutated original: %v", orig.Get("status"))
	}
}

func TestEncodedJSONRoundTrip(t *testing.T) {
	schema := Schema{
		"assignee": TypePerson, "reviewers": TypePeople, "dueDate": TypeDate,
		"services": TypeMultiSelect, "minutes": TypeNumber, "urgent": TypeBoolean,
	}
	orig := Task{ID: "5", Title: "Promo"}
	orig.Set("assignee", testMembers[0])
	orig.Set("reviewers", []User{testMembers[1]})
	orig.Set("dueDate", date.New(2024, time.June, 3))
	orig.Set("services", []string{"dubbing"})
	orig.Set("minutes", 12.5)
	orig.Set("urgent", true)
	orig.Set("extra", "kept")

	data, err := json.Marshal(orig.Encoded())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := got.Decode(schema, testMembers); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(orig.Fields, got.Fields); diff != "" {
		t.Errorf("fields after round trip (-want +got):\n%s", diff)
	}
	if got.Title != "Promo" {
		t.Errorf("Title = %q", got.Title)
	}
}
