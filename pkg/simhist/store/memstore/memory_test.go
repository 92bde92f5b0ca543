package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
	"github.com/cognicore/simhist/pkg/simhist/store"
)

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	st := New()
	defer st.Close()

	seed := uint64(7)
	id, err := st.SaveRun(ctx, store.Run{
		Name:  "cms",
		Steps: 2,
		Seed:  &seed,
		SelfA: histogram.Histogram{1, 2, 3},
		Cross: histogram.Histogram{0, 0, 9},
	})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated id")
	}

	got, err := st.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Name != "cms" || got.Steps != 2 || *got.Seed != 7 {
		t.Errorf("Unexpected run %+v", got)
	}
	if got.SelfA[2] != 3 || got.Cross[2] != 9 {
		t.Errorf("Histograms not stored: %+v", got)
	}
	if got.SelfB != nil {
		t.Errorf("Expected missing histogram to stay nil, got %#v", got.SelfB)
	}

	// returned runs are copies
	got.SelfA[0] = 100
	again, _ := st.GetRun(ctx, id)
	if again.SelfA[0] != 1 {
		t.Error("Store should not share histogram storage with callers")
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, err := New().GetRun(context.Background(), "missing")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		if _, err := st.SaveRun(ctx, store.Run{Name: name, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].Name != "third" || runs[1].Name != "second" {
		t.Errorf("Unexpected order: %s, %s", runs[0].Name, runs[1].Name)
	}

	all, _ := st.ListRuns(ctx, 0)
	if len(all) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(all))
	}
}
