package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
)

func TestParseFilter(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		raw  string
		want ColumnFilter
	}{
		{"status:equals:done", ColumnFilter{ColumnID: "status", Field: "status", Type: FilterEquals, Value: "done"}},
		{"assignee:equals:u2", ColumnFilter{ColumnID: "assignee", Field: "assignee", Type: FilterEquals, Value: bruno}},
		{"services:includes:dubbing, qc", ColumnFilter{ColumnID: "services", Field: "services", Type: FilterIncludes, Value: []string{"dubbing", "qc"}}},
		{"services:includes:dubbing", ColumnFilter{ColumnID: "services", Field: "services", Type: FilterIncludes, Value: "dubbing"}},
		{"urgent:boolean:true", ColumnFilter{ColumnID: "urgent", Field: "urgent", Type: FilterBoolean, Value: true}},
		{"minutes:equals:30", ColumnFilter{ColumnID: "minutes", Field: "minutes", Type: FilterEquals, Value: 30.0}},
		{"phase:notEmpty", ColumnFilter{ColumnID: "phase", Field: "phase", Type: FilterNotEmpty}},
		{"title:contains:a:b", ColumnFilter{ColumnID: "title", Field: "title", Type: FilterContains, Value: "a:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFilter(tt.raw, cfg)
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseFilter (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFilterDateRange(t *testing.T) {
	cfg := testConfig()
	f, err := ParseFilter("dueDate:dateRange:2024-01-01..", cfg)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	rng, ok := f.Value.(DateRange)
	if !ok {
		t.Fatalf("value type = %T, want DateRange", f.Value)
	}
	if rng.From == nil || rng.From.String() != "2024-01-01" || rng.To != nil {
		t.Errorf("range = %v..%v, want 2024-01-01..(open)", rng.From, rng.To)
	}

	f, err = ParseFilter("dueDate:dateRange:2024-02-03", cfg)
	if err != nil {
		t.Fatalf("ParseFilter single day: %v", err)
	}
	rng = f.Value.(DateRange)
	if rng.From.String() != "2024-02-03" || rng.To.String() != "2024-02-03" {
		t.Errorf("single-day range = %v..%v", rng.From, rng.To)
	}
}

func TestParseFilterErrors(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		raw  string
		code string
	}{
		{"status", clierr.InvalidFilter},
		{"nope:equals:x", clierr.UnknownColumn},
		{"status:fuzzy:x", clierr.InvalidFilter},
		{"status:equals", clierr.InvalidFilter},
		{"urgent:boolean:maybe", clierr.InvalidFilter},
		{"dueDate:dateRange:yesterday..", clierr.InvalidDate},
		{"minutes:equals:lots", clierr.InvalidValue},
	}
	for _, tt := range tests {
		_, err := ParseFilter(tt.raw, cfg)
		if !clierr.HasCode(err, tt.code) {
			t.Errorf("ParseFilter(%q) error = %v, want code %s", tt.raw, err, tt.code)
		}
	}
}

func TestParseSort(t *testing.T) {
	cfg := testConfig()
	got, err := ParseSort("dueDate:desc", cfg)
	if err != nil {
		t.Fatalf("ParseSort: %v", err)
	}
	if got != (SortConfig{Key: "dueDate", Direction: Desc}) {
		t.Errorf("ParseSort = %+v", got)
	}
	got, err = ParseSort("created", cfg)
	if err != nil || got != (SortConfig{Key: "created", Direction: Asc}) {
		t.Errorf("ParseSort(created) = %+v, %v", got, err)
	}
	if _, err := ParseSort("bogus", cfg); !clierr.HasCode(err, clierr.InvalidSort) {
		t.Errorf("unknown key error = %v", err)
	}
	if _, err := ParseSort("title:up", cfg); !clierr.HasCode(err, clierr.InvalidSort) {
		t.Errorf("bad direction error = %v", err)
	}
}

func TestParseIDs(t *testing.T) {
	got, err := ParseIDs("3, 1,3,,2")
	if err != nil {
		t.Fatalf("ParseIDs: %v", err)
	}
	if diff := cmp.Diff([]string{"3", "1", "2"}, got); diff != "" {
		t.Errorf("ParseIDs (-want +got):\n%s", diff)
	}
	if _, err := ParseIDs(" , "); !clierr.HasCode(err, clierr.InvalidTaskID) {
		t.Errorf("empty ParseIDs error = %v", err)
	}
}
