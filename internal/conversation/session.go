package conversation

import (
	"context"
	"sync"
)

// Step は会話の進行中ステップ。空文字列はアイドル状態を表す。
type Step string

// ステップ一覧。
const (
	StepIdle        Step = ""
	StepAskDate     Step = "askDate"
	StepAskReminder Step = "askReminder"
	StepSymLoop     Step = "symLoop"
	StepEdu         Step = "edu"
	StepLang        Step = "lang"
	StepFeedback1   Step = "fb1"
	StepFeedback2   Step = "fb2"
	StepOrder       Step = "order"
)

// Scratch はフロー内の一時データ。アイドルに戻るとリセットされる。
type Scratch struct {
	SymptomCount int
	Response1    string
}

// Session はユーザーごとの会話状態。プロセスメモリ上にのみ保持する。
type Session struct {
	Step     Step
	Data     Scratch
	Language string
}

// Reset はセッションをアイドル状態に戻す。言語キャッシュは維持する。
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Data = Scratch{}
}

// SessionRepository は会話セッションの保存先インターフェース。
type SessionRepository interface {
	// Load は指定IDのセッションを返す。存在しない場合は新しいアイドルセッションを返す。
	Load(ctx context.Context, id string) (*Session, error)
	// Save はセッションを保存する。
	Save(ctx context.Context, id string, s *Session) error
}

// MemorySessions はミューテックスで保護されたインメモリのSessionRepository。
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessions はMemorySessionsを生成する。
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Session)}
}

// Load はセッションのコピーを返す。
func (m *MemorySessions) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	return &s, nil
}

// Save はセッションのコピーを保存する。
func (m *MemorySessions) Save(_ context.Context, id string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = *s
	return nil
}

// Len は保持しているセッション数を返す。
func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// compile-time interface check
var _ SessionRepository = (*MemorySessions)(nil)
