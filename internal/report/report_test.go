package report

import (
	"errors"
	"fmt"
	"testing"

	"sceneflow/internal/services"
)

func TestRecordClassifiesErrors(t *testing.T) {
	r := New()
	r.Record("scene_a", nil)
	r.Record("scene_b", fmt.Errorf("%w: no staged directory", services.ErrNotFound))
	r.Record("scene_c", fmt.Errorf("%w: destination present", services.ErrExists))
	r.Record("scene_d", errors.New("disk exploded"))

	cases := map[string]Outcome{
		"scene_a": Succeeded,
		"scene_b": Skipped,
		"scene_c": Skipped,
		"scene_d": Failed,
	}
	for key, want := range cases {
		res, ok := r.Result(key)
		if !ok {
			t.Fatalf("missing result for %s", key)
		}
		if res.Outcome != want {
			t.Errorf("%s = %s, want %s", key, res.Outcome, want)
		}
	}

	if r.AllSucceeded() {
		t.Fatal("a failed key should flip AllSucceeded")
	}
	counts := r.Counts()
	if counts[Skipped] != 2 || counts[Succeeded] != 1 || counts[Failed] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestSuccessfulSorted(t *testing.T) {
	r := New()
	r.Succeed("scene_c")
	r.Succeed("scene_a")
	r.Skip("scene_b", "not found")

	got := r.Successful()
	want := []string{"scene_a", "scene_c"}
	if len(got) != len(want) {
		t.Fatalf("successful = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("successful = %v, want %v", got, want)
		}
	}
}

func TestResultsKeepRecordingOrder(t *testing.T) {
	r := New()
	r.Succeed("scene_b")
	r.Fail("scene_a", errors.New("boom"))
	r.Succeed("scene_b") // re-recording keeps the original position

	results := r.Results()
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}
	if results[0].Key != "scene_b" || results[1].Key != "scene_a" {
		t.Fatalf("order = %v", results)
	}
}

func TestSkipReasonSurvives(t *testing.T) {
	r := New()
	r.Record("scene_a", fmt.Errorf("%w: two week directories match", services.ErrAmbiguous))
	res, _ := r.Result("scene_a")
	if res.Reason != "ambiguous" {
		t.Fatalf("reason = %q", res.Reason)
	}
}
