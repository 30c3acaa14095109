package model

import "errors"

// 定義済みエラー
var (
	// ErrNotConnected はトランスポートが送信可能な状態でないことを示す。
	ErrNotConnected = errors.New("transport is not ready")
	// ErrTransportClosed はトランスポートがクローズ済みであることを示す。
	ErrTransportClosed = errors.New("transport is closed")
	// ErrConfigMissing は必須の環境変数が未設定であることを示す。
	ErrConfigMissing = errors.New("required configuration is missing")
)

// ConfigError は起動時に致命的となる設定エラーを表す。
type ConfigError struct {
	Missing []string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigError) Error() string {
	msg := "required environment variables are not set:"
	for _, m := range e.Missing {
		msg += " " + m
	}
	return msg
}

// Unwrap はerrors.Is(err, ErrConfigMissing)を可能にする。
func (e *ConfigError) Unwrap() error {
	return ErrConfigMissing
}
