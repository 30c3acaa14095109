package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/venille/internal/model"
)

// LocalStore はブロブを <dir>/<sessionID>.json に保存するファイル層。
// 書き込みは一時ファイル＋renameでアトミックに行う。
type LocalStore struct {
	dir       string
	sessionID string
}

type localFile struct {
	ID        string    `json:"id"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLocalStore はLocalStoreを生成する。
func NewLocalStore(dir, sessionID string) *LocalStore {
	if sessionID == "" {
		sessionID = model.DefaultAuthSessionID
	}
	return &LocalStore{dir: dir, sessionID: sessionID}
}

// Path はブロブファイルのパスを返す。
func (s *LocalStore) Path() string {
	return filepath.Join(s.dir, s.sessionID+".json")
}

// EnsureSchema は保存ディレクトリを作成する。
func (s *LocalStore) EnsureSchema(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	return nil
}

// Load はブロブを読み込む。ファイルがない場合や解読できない場合は nil, nil を返す。
func (s *LocalStore) Load(_ context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f localFile
	if err := json.Unmarshal(raw, &f); err != nil || len(f.Data) == 0 {
		return nil, nil
	}
	return f.Data, nil
}

// Save はブロブをアトミックに書き込む。
func (s *LocalStore) Save(ctx context.Context, blob []byte) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	raw, err := json.Marshal(localFile{ID: s.sessionID, Data: blob, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, s.sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Remove はブロブファイルを削除する。存在しない場合もエラーにしない。
func (s *LocalStore) Remove(_ context.Context) error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Store = (*LocalStore)(nil)
