package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather は指定名のメトリクスファミリーを取得する。
func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
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

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestCounters_Increment は各カウンタが増加することを検証する。
func TestCounters_Increment(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMessageReceived()
	c.RecordMessageReceived()
	c.RecordReplySent()
	c.RecordReplyFailed()
	c.RecordReminderSent()
	c.RecordOutboxDelivered()
	c.RecordOutboxFailed()
	c.RecordOutboxFailed()

	tests := []struct {
		name string
		want float64
	}{
		{"venille_messages_received_total", 2},
		{"venille_replies_sent_total", 1},
		{"venille_replies_failed_total", 1},
		{"venille_reminders_sent_total", 1},
		{"venille_outbox_delivered_total", 1},
		{"venille_outbox_failed_total", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := gather(t, reg, tt.name)
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestRecordReconnect_LabelsByFault は再接続カウンタが障害分類ラベル付きで増加することを検証する。
func TestRecordReconnect_LabelsByFault(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReconnect("recoverable")
	c.RecordReconnect("recoverable")
	c.RecordReconnect("disconnect")

	mf := gather(t, reg, "venille_reconnects_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "fault" {
				counts[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if counts["recoverable"] != 2 || counts["disconnect"] != 1 {
		t.Errorf("reconnects = %v", counts)
	}
}

// TestRecordPanic_LabelsByComponent は回復したパニックがコンポーネント別に数えられることを検証する。
func TestRecordPanic_LabelsByComponent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPanic("ops_http")
	c.RecordPanic("ops_http")

	mf := gather(t, reg, "venille_panics_total")
	if len(mf.GetMetric()) != 1 {
		t.Fatalf("系列数 = %d, want 1", len(mf.GetMetric()))
	}
	m := mf.GetMetric()[0]
	if got := m.GetLabel()[0].GetValue(); got != "ops_http" {
		t.Errorf("component = %q, want ops_http", got)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("panics = %v, want 2", got)
	}
}

// TestSetTransportState_OneHot は現在状態のみ1になることを検証する。
func TestSetTransportState_OneHot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetTransportState("ready")

	mf := gather(t, reg, "venille_transport_state")
	if len(mf.GetMetric()) != len(TransportStates) {
		t.Fatalf("状態数 = %d, want %d", len(mf.GetMetric()), len(TransportStates))
	}
	for _, m := range mf.GetMetric() {
		state := m.GetLabel()[0].GetValue()
		want := 0.0
		if state == "ready" {
			want = 1
		}
		if got := m.GetGauge().GetValue(); got != want {
			t.Errorf("transport_state{state=%q} = %v, want %v", state, got, want)
		}
	}
}

// TestRecordHandleLatency_Observes はヒストグラムに観測値が記録されることを検証する。
func TestRecordHandleLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHandleLatency(150 * time.Millisecond)

	mf := gather(t, reg, "venille_message_handle_seconds")
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}
