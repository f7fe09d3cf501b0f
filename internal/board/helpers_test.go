package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

var (
	ana   = task.User{ID: "u1", Name: "Ana Lima", Initials: "AL"}
	bruno = task.User{ID: "u2", Name: "Bruno Reis", Initials: "BR"}
	chen  = task.User{ID: "u3", Name: "chen wu", Initials: "CW"}
)

func newTask(id string, fields map[string]any) task.Task {
	t := task.Task{ID: id}
	for k, v := range fields {
		t.Set(k, v)
	}
	return t
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func assertIDs(t *testing.T, got []task.Task, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Errorf("task order mismatch (-want +got):\n%s", diff)
	}
}

func day(s string) date.Date {
	d, err := date.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testConfig() *config.Config {
	cfg := config.NewDefault("Dub Board")
	cfg.Members = []task.User{ana, bruno, chen}
	return cfg
}
