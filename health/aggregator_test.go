package health

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func staticChecker(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("b", staticChecker("b", Healthy("")))
	agg.Register("a", staticChecker("a", Healthy("")))
	agg.Register("b", staticChecker("b", Degraded("")))

	if got := agg.CheckerNames(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("CheckerNames() = %v, want [b a]", got)
	}

	agg.Unregister("b")
	if got := agg.CheckerNames(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("CheckerNames() after Unregister = %v, want [a]", got)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("ok", staticChecker("ok", Healthy("fine")))
	agg.Register("slow", staticChecker("slow", Degraded("lagging")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["ok"].Status != StatusHealthy || results["slow"].Status != StatusDegraded {
		t.Errorf("results = %+v", results)
	}
	if agg.OverallStatus(results) != StatusDegraded {
		t.Errorf("OverallStatus() = %v, want degraded", agg.OverallStatus(results))
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"one unhealthy", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 10 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return Healthy("too late")
	}))

	result := agg.CheckAll(context.Background())["stuck"]
	if result.Status != StatusUnhealthy || !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want a timeout", result)
	}
}

func TestAggregator_CheckSingle(t *testing.T) {
	agg := NewAggregator()
	agg.Register("ok", staticChecker("ok", Healthy("fine")))

	result, err := agg.Check(context.Background(), "ok")
	if err != nil || result.Message != "fine" {
		t.Errorf("Check() = %+v, %v", result, err)
	}
	if result.Duration < 0 || result.Timestamp.IsZero() {
		t.Error("duration and timestamp should be filled in")
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(9):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
