package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("sweep", 250*time.Millisecond)
	m.IncSuccess("sweep")
	m.IncSuccess("sweep")
	m.IncFailure("sweep")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	if got := counterValue(t, mfs, "haulpoints_job_runs_total", map[string]string{"job": "sweep", "result": "success"}); got != 2 {
		t.Fatalf("success runs = %f, want 2", got)
	}
	if got := counterValue(t, mfs, "haulpoints_job_runs_total", map[string]string{"job": "sweep", "result": "failure"}); got != 1 {
		t.Fatalf("failure runs = %f, want 1", got)
	}

	hist := findMetric(mfs, "haulpoints_job_duration_seconds", map[string]string{"job": "sweep"})
	if hist == nil {
		t.Fatalf("duration histogram not exported")
	}
	if sum := hist.GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("duration sum = %f, want > 0", sum)
	}
}

func TestCronJobMetricsEmptyJobNameMapsToUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(t, mfs, "haulpoints_job_runs_total", map[string]string{"job": "unknown", "result": "success"}); got != 1 {
		t.Fatalf("unknown-job runs = %f, want 1", got)
	}
}

func TestCronJobMetricsNilRegistererIsInert(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveDuration("sweep", time.Second)
	m.IncSuccess("sweep")
	m.IncFailure("sweep")

	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("sweep")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	metric := findMetric(mfs, name, labels)
	if metric == nil {
		t.Fatalf("counter %q with labels %v not found", name, labels)
	}
	return metric.GetCounter().GetValue()
}

func findMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	return nil
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	got := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
