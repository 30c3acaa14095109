package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/venille/internal/middleware"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/hitoshi/venille/internal/supervisor"
)

// maxOutboxBodyRunes は送信キューに投入できる本文の最大文字数。
const maxOutboxBodyRunes = 4096

// Pinger はデータベースの疎通確認インターフェース。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// TransportStatus はトランスポートの接続状態を返すインターフェース。
type TransportStatus interface {
	State() supervisor.State
	PendingCredential() string
}

// OpsHandler は運用エンドポイントのHTTPハンドラー。
type OpsHandler struct {
	db          Pinger
	transport   TransportStatus
	outbox      repository.OutgoingMessageRepository
	logger      *slog.Logger
	pingTimeout time.Duration
}

// NewOpsHandler はOpsHandlerを生成する。
func NewOpsHandler(db Pinger, transport TransportStatus, outbox repository.OutgoingMessageRepository, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{
		db:          db,
		transport:   transport,
		outbox:      outbox,
		logger:      logger,
		pingTimeout: 2 * time.Second,
	}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Transport     string `json:"transport"`
	PendingOutbox *int   `json:"pending_outbox,omitempty"`
}

// Health はデータベースの疎通とトランスポートの状態を返す。
// GET /health
// データベースに到達できない場合は503を返す。トランスポートの状態はステータスコードに影響しない。
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "ok",
		Transport: string(h.transport.State()),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), h.pingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	} else if h.outbox != nil {
		if n, err := h.outbox.CountPending(ctx); err == nil {
			resp.PendingOutbox = &n
		}
	}

	middleware.WriteJSON(w, status, resp)
}

// credentialResponse は保留中の資格情報コードのレスポンス。
type credentialResponse struct {
	Code       string `json:"code"`
	QRImageURL string `json:"qr_image_url"`
}

// Credential は保留中の資格情報コードとQR画像のリンクを返す。
// GET /credential
func (h *OpsHandler) Credential(w http.ResponseWriter, r *http.Request) {
	code := h.transport.PendingCredential()
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusNotFound, "NO_PENDING_CREDENTIAL", "no credential is awaiting scan")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, credentialResponse{
		Code:       code,
		QRImageURL: supervisor.QRImageURL(code),
	})
}

// enqueueRequest は送信キュー投入のリクエスト。
type enqueueRequest struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// enqueueResponse は送信キュー投入のレスポンス。
type enqueueResponse struct {
	ID string `json:"id"`
}

// Enqueue は外部プロデューサーからのメッセージを送信キューに追加する。
// POST /outbox
func (h *OpsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" || strings.TrimSpace(req.Body) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "recipient and body are required")
		return
	}
	if utf8.RuneCountInString(req.Body) > maxOutboxBodyRunes {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "BODY_TOO_LONG", "body is too long")
		return
	}

	msg, err := h.outbox.Enqueue(r.Context(), req.Recipient, req.Body)
	if err != nil {
		h.logger.Error("failed to enqueue outgoing message",
			slog.String("recipient", req.Recipient),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, enqueueResponse{ID: msg.ID})
}
