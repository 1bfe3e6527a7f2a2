package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を取得する。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordUpstreamRequest_CountsByMethodAndStatus はメソッド・ステータス別に集計されることを検証する。
func TestRecordUpstreamRequest_CountsByMethodAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamRequest("GET", 200, 10*time.Millisecond)
	c.RecordUpstreamRequest("GET", 200, 20*time.Millisecond)
	c.RecordUpstreamRequest("DELETE", 404, 5*time.Millisecond)

	mf := findMetricFamily(t, reg, "adminpanel_upstream_requests_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		key := labelValue(m, "method") + " " + labelValue(m, "status_code")
		counts[key] = m.GetCounter().GetValue()
	}

	if counts["GET 200"] != 2 {
		t.Errorf("GET 200 = %v, want 2", counts["GET 200"])
	}
	if counts["DELETE 404"] != 1 {
		t.Errorf("DELETE 404 = %v, want 1", counts["DELETE 404"])
	}

	latency := findMetricFamily(t, reg, "adminpanel_upstream_latency_seconds")
	if got := latency.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("latency sample count = %d, want 3", got)
	}
}

// TestRecordUpstreamFailure_IncrementsCounter は通信失敗カウンタが増加することを検証する。
func TestRecordUpstreamFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamFailure("POST")

	mf := findMetricFamily(t, reg, "adminpanel_upstream_failures_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("upstream_failures_total = %v, want 1", v)
	}
}

// TestRecordLogin_CountsByResult はログイン結果別に集計されることを検証する。
func TestRecordLogin_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(LoginSucceeded)
	c.RecordLogin(LoginRejected)
	c.RecordLogin(LoginRejected)

	mf := findMetricFamily(t, reg, "adminpanel_login_total")
	for _, m := range mf.GetMetric() {
		switch labelValue(m, "result") {
		case LoginSucceeded:
			if v := m.GetCounter().GetValue(); v != 1 {
				t.Errorf("success = %v, want 1", v)
			}
		case LoginRejected:
			if v := m.GetCounter().GetValue(); v != 2 {
				t.Errorf("rejected = %v, want 2", v)
			}
		}
	}
}

// TestRecordGuardRedirect_CountsByTarget はリダイレクト先別に集計されることを検証する。
func TestRecordGuardRedirect_CountsByTarget(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGuardRedirect("/login")

	mf := findMetricFamily(t, reg, "adminpanel_guard_redirects_total")
	if got := labelValue(mf.GetMetric()[0], "target"); got != "/login" {
		t.Errorf("target = %q, want /login", got)
	}
}

// TestRecordSessionsPurged_AddsCount は削除件数が加算されることを検証する。
func TestRecordSessionsPurged_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsPurged(3)
	c.RecordSessionsPurged(0)
	c.RecordSessionsPurged(2)

	mf := findMetricFamily(t, reg, "adminpanel_sessions_purged_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 5 {
		t.Errorf("sessions_purged_total = %v, want 5", v)
	}
}

// TestNewCollector_DuplicateRegistration_Panics は同一レジストリへの二重登録でpanicすることを検証する。
func TestNewCollector_DuplicateRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
