package ai

import "testing"

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Record(ModelMetrics{InputTokens: 100, OutputTokens: 50, TotalTokens: 150, DurationMs: 500})
	r.Record(ModelMetrics{InputTokens: 10, OutputTokens: 40, TotalTokens: 50, DurationMs: 500})

	got := r.GetMetrics()
	if got.InputTokens != 110 || got.OutputTokens != 90 || got.TotalTokens != 200 || got.DurationMs != 1000 {
		t.Fatalf("GetMetrics() = %+v", got)
	}
	if got.TokenPerSecond != 200 {
		t.Fatalf("TokenPerSecond = %v, want 200", got.TokenPerSecond)
	}

	r.ResetMetrics()
	if r.GetMetrics() != (ModelMetrics{}) {
		t.Fatalf("ResetMetrics() did not clear totals")
	}
}

func TestApplyOptions(t *testing.T) {
	got := ApplyOptions(
		GenerateOptions{Model: "default", Temperature: 0.1},
		WithModel("override"),
		nil,
		WithSystemPrompts("a", "b"),
	)
	if got.Model != "override" || got.Temperature != 0.1 || len(got.SystemPrompts) != 2 {
		t.Fatalf("ApplyOptions() = %+v", got)
	}
}
