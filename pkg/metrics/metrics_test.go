package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	m.Observe("promote_orders", started, 250*time.Millisecond, nil)
	m.Observe("promote_orders", started, time.Second, errors.New("db down"))

	if got := testutil.ToFloat64(m.runs.WithLabelValues("promote_orders", OutcomeSuccess)); got != 1 {
		t.Fatalf("expected one success, got %f", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("promote_orders", OutcomeFailure)); got != 1 {
		t.Fatalf("expected one failure, got %f", got)
	}
	if got := testutil.ToFloat64(m.lastRun.WithLabelValues("promote_orders")); got != float64(started.Unix()) {
		t.Fatalf("unexpected last success %f", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "scheduled_job_duration_seconds", "job", "promote_orders"); err != nil || got != 1.25 {
		t.Fatalf("expected duration sum 1.25, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestLedgerMetricsCountsMovements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveMovement("order_payment", DirectionDebit, decimal.NewFromInt(200000))
	m.ObserveMovement("refund", DirectionCredit, decimal.NewFromInt(200000))
	m.ObserveNotification("credited")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "wallet_movements_total", "reason", "refund"); err != nil || got != 1 {
		t.Fatalf("expected one refund movement, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "wallet_movement_amount_total", "direction", DirectionDebit); err != nil || got != 200000 {
		t.Fatalf("expected debit volume 200000, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "gateway_notifications_total", "outcome", "credited"); err != nil || got != 1 {
		t.Fatalf("expected one credited notification, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *LedgerMetrics
	m.ObserveMovement("refund", DirectionCredit, decimal.NewFromInt(1))
	m.ObserveNotification("probe")
	NewLedgerMetrics(nil).ObserveNotification("probe")
	var jobs *JobMetrics
	jobs.Observe("expire_withdrawals", time.Now(), time.Second, nil)
	NewJobMetrics(nil).Observe("expire_withdrawals", time.Now(), time.Second, nil)
}
