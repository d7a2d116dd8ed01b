package generation

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeServerlessShape(t *testing.T) {
	raw := map[string]any{
		"id":     "job-1",
		"status": "COMPLETED",
		"output": map[string]any{
			"job_results": map[string]any{
				"images": []any{"abc", "def"},
			},
		},
	}

	res := Normalize(raw)
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.Status)
	}
	if !reflect.DeepEqual(res.Artifacts, []string{"abc", "def"}) {
		t.Fatalf("artifacts = %#v", res.Artifacts)
	}
	if res.RawStatus != "COMPLETED" {
		t.Fatalf("raw status = %q", res.RawStatus)
	}
}

func TestNormalizePodShape(t *testing.T) {
	raw := map[string]any{
		"images": []any{"data:image/png;base64,xyz"},
	}

	res := Normalize(raw)
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.Status)
	}
	if len(res.Artifacts) != 1 {
		t.Fatalf("artifacts = %#v", res.Artifacts)
	}
}

func TestNormalizePathOrder(t *testing.T) {
	raw := map[string]any{
		"status": "COMPLETED",
		"output": map[string]any{
			"job_results": map[string]any{"images": []any{"nested"}},
			"images":      []any{"flat"},
		},
	}

	res := Normalize(raw)
	if !reflect.DeepEqual(res.Artifacts, []string{"nested"}) {
		t.Fatalf("artifacts = %#v, want deepest path to win", res.Artifacts)
	}
}

func TestNormalizeCancelledBecomesFailed(t *testing.T) {
	raw := map[string]any{"status": "CANCELLED"}

	res := Normalize(raw)
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if res.RawStatus != "CANCELLED" {
		t.Fatalf("raw status = %q, want CANCELLED preserved", res.RawStatus)
	}
	if res.Err == "" {
		t.Fatalf("expected error message for cancelled job")
	}
}

func TestNormalizeFailedCarriesBackendError(t *testing.T) {
	raw := map[string]any{"status": "FAILED", "error": "CUDA out of memory"}

	res := Normalize(raw)
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if res.Err != "CUDA out of memory" {
		t.Fatalf("err = %q", res.Err)
	}
}

func TestNormalizeCompletedWithoutArtifactsIsNotAnError(t *testing.T) {
	raw := map[string]any{"status": "COMPLETED", "output": map[string]any{}}

	res := Normalize(raw)
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.Status)
	}
	if len(res.Artifacts) != 0 {
		t.Fatalf("artifacts = %#v, want empty", res.Artifacts)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize(map[string]any{
		"status": "COMPLETED",
		"output": map[string]any{"images": []any{"abc"}},
	})

	// Round-trip the normalized result the way a caller would see it.
	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(encoded, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := Normalize(roundTripped)
	if second.Status != first.Status {
		t.Fatalf("status changed on re-normalization: %s vs %s", second.Status, first.Status)
	}
	if !reflect.DeepEqual(second.Artifacts, first.Artifacts) {
		t.Fatalf("artifacts changed on re-normalization: %#v vs %#v", second.Artifacts, first.Artifacts)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusInQueue, StatusInProgress, Status("")} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"wizard", "new_pre", "posterFrameRegeneration"} {
		if _, err := ParseMode(valid); err != nil {
			t.Fatalf("ParseMode(%s) failed: %v", valid, err)
		}
	}
	if _, err := ParseMode("deluxe"); err == nil {
		t.Fatalf("ParseMode should reject unknown modes")
	}
}
