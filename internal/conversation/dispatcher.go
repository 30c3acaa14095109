package conversation

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/hitoshi/venille/internal/transport"
)

// Handler は1件の受信メッセージを処理する。
type Handler interface {
	Handle(ctx context.Context, msg transport.InboundMessage)
}

// Dispatcher は受信メッセージを送信元ごとのFIFOキューに振り分ける。
// 同じ送信元のメッセージは到着順に1件ずつ処理され、異なる送信元は並行に処理される。
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	queues map[string][]transport.InboundMessage
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(handler Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		queues:  make(map[string][]transport.InboundMessage),
	}
}

// Submit はメッセージをキューに追加する。クローズ後のメッセージは破棄する。
func (d *Dispatcher) Submit(msg transport.InboundMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("停止中のため受信メッセージを破棄しました", slog.String("jid", msg.From))
		return
	}

	q, busy := d.queues[msg.From]
	d.queues[msg.From] = append(q, msg)
	if busy {
		return
	}

	d.wg.Add(1)
	go d.drain(msg.From)
}

// drain はキューが空になるまで送信元のメッセージを順に処理する。
func (d *Dispatcher) drain(from string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		q := d.queues[from]
		if len(q) == 0 {
			delete(d.queues, from)
			d.mu.Unlock()
			return
		}
		msg := q[0]
		d.queues[from] = q[1:]
		d.mu.Unlock()

		d.handle(msg)
	}
}

func (d *Dispatcher) handle(msg transport.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("メッセージ処理中にパニックが発生しました",
				slog.String("jid", msg.From),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	d.handler.Handle(d.ctx, msg)
}

// Pending は処理待ちのメッセージ数を返す。
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Close は新規受付を停止し、処理中のキューが空になるのを待つ。
// ctxが先に終了した場合は処理中のハンドラーをキャンセルしてctx.Err()を返す。
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
