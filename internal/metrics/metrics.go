// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// スーパーバイザー、会話エンジン、ワーカーから利用する。
type MetricsCollector interface {
	RecordMessageReceived()
	RecordReplySent()
	RecordReplyFailed()
	RecordHandleLatency(duration time.Duration)
	RecordReminderSent()
	RecordOutboxDelivered()
	RecordOutboxFailed()
	RecordReconnect(faultClass string)
	SetTransportState(state string)
}

// TransportStates はtransport_stateゲージで扱う状態の一覧。
var TransportStates = []string{
	"idle", "connecting", "awaiting_credential", "authenticated",
	"ready", "degraded", "disconnected", "logged_out",
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	messagesReceived prometheus.Counter
	repliesSent      prometheus.Counter
	repliesFailed    prometheus.Counter
	handleLatency    prometheus.Histogram
	remindersSent    prometheus.Counter
	outboxDelivered  prometheus.Counter
	outboxFailed     prometheus.Counter
	reconnects       *prometheus.CounterVec
	transportState   *prometheus.GaugeVec
	panics           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_messages_received_total",
			Help: "受信メッセージの合計数",
		}),
		repliesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_replies_sent_total",
			Help: "送信成功した返信の合計数",
		}),
		repliesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_replies_failed_total",
			Help: "送信失敗した返信の合計数",
		}),
		handleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "venille_message_handle_seconds",
			Help:    "受信メッセージ1件の処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_reminders_sent_total",
			Help: "送信したリマインダーの合計数",
		}),
		outboxDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_outbox_delivered_total",
			Help: "送信キューから配送したメッセージの合計数",
		}),
		outboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "venille_outbox_failed_total",
			Help: "送信キューの配送失敗の合計数",
		}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venille_reconnects_total",
			Help: "障害分類別の再接続回数",
		}, []string{"fault"}),
		transportState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venille_transport_state",
			Help: "現在のトランスポート状態（該当状態のみ1）",
		}, []string{"state"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venille_panics_total",
			Help: "コンポーネント別の回復したパニックの回数",
		}, []string{"component"}),
	}

	reg.MustRegister(
		c.messagesReceived,
		c.repliesSent,
		c.repliesFailed,
		c.handleLatency,
		c.remindersSent,
		c.outboxDelivered,
		c.outboxFailed,
		c.reconnects,
		c.transportState,
		c.panics,
	)

	c.SetTransportState("idle")
	return c
}

// RecordMessageReceived は受信メッセージを記録する。
func (c *Collector) RecordMessageReceived() {
	c.messagesReceived.Inc()
}

// RecordReplySent は返信の送信成功を記録する。
func (c *Collector) RecordReplySent() {
	c.repliesSent.Inc()
}

// RecordReplyFailed は返信の送信失敗を記録する。
func (c *Collector) RecordReplyFailed() {
	c.repliesFailed.Inc()
}

// RecordHandleLatency はメッセージ処理時間を記録する。
func (c *Collector) RecordHandleLatency(duration time.Duration) {
	c.handleLatency.Observe(duration.Seconds())
}

// RecordReminderSent はリマインダー送信を記録する。
func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

// RecordOutboxDelivered は送信キューの配送成功を記録する。
func (c *Collector) RecordOutboxDelivered() {
	c.outboxDelivered.Inc()
}

// RecordOutboxFailed は送信キューの配送失敗を記録する。
func (c *Collector) RecordOutboxFailed() {
	c.outboxFailed.Inc()
}

// RecordReconnect は再接続を障害分類付きで記録する。
func (c *Collector) RecordReconnect(faultClass string) {
	c.reconnects.WithLabelValues(faultClass).Inc()
}

// SetTransportState は現在の状態のゲージを1、それ以外を0にする。
func (c *Collector) SetTransportState(state string) {
	for _, s := range TransportStates {
		v := 0.0
		if s == state {
			v = 1
		}
		c.transportState.WithLabelValues(s).Set(v)
	}
}

// RecordPanic は回復したパニックをコンポーネント別に記録する。
func (c *Collector) RecordPanic(component string) {
	c.panics.WithLabelValues(component).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordMessageReceived()            {}
func (Nop) RecordReplySent()                  {}
func (Nop) RecordReplyFailed()                {}
func (Nop) RecordHandleLatency(time.Duration) {}
func (Nop) RecordReminderSent()               {}
func (Nop) RecordOutboxDelivered()            {}
func (Nop) RecordOutboxFailed()               {}
func (Nop) RecordReconnect(string)            {}
func (Nop) SetTransportState(string)          {}
func (Nop) RecordPanic(string)                {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
