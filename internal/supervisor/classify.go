package supervisor

import (
	"strings"
	"time"
)

// FaultClass はトランスポート障害の分類。
type FaultClass string

const (
	// FaultRecoverable は再接続で回復が見込める障害。未知の障害もこちらに分類する。
	FaultRecoverable FaultClass = "recoverable"
	// FaultTerminal は資格情報の失効やログアウトなど、再試行しても回復しない障害。
	FaultTerminal FaultClass = "terminal"
	// FaultDisconnect はLOGOUT以外の理由による切断。
	FaultDisconnect FaultClass = "disconnect"
)

// terminalMarkers は致命的障害を示すエラーメッセージの部分文字列（小文字）。
var terminalMarkers = []string{
	"auth failure",
	"authentication failure",
	"auth_failure",
	"credential invalid",
	"invalid credential",
	"session invalid",
	"invalid session",
	"logged out",
	"logout",
	"unpaired",
}

// ClassifyFault はエラーメッセージを障害分類に変換する。
// Target closed・Protocol error・ナビゲーション失敗・タイムアウトなどは回復可能として扱う。
func ClassifyFault(message string) FaultClass {
	lower := strings.ToLower(message)
	for _, m := range terminalMarkers {
		if strings.Contains(lower, m) {
			return FaultTerminal
		}
	}
	return FaultRecoverable
}

// IsTerminalDisconnect は切断理由が再接続不可（ログアウト・ペアリング解除）かを判定する。
func IsTerminalDisconnect(reason string) bool {
	switch strings.ToUpper(strings.TrimSpace(reason)) {
	case "LOGOUT", "UNPAIRED":
		return true
	}
	return false
}

// CalculateBackoff は連続障害回数に基づいて再接続までの遅延を計算する。
// base * 2^(n-1)、最大maxDelay。n<=1の場合はbaseを返す。
func CalculateBackoff(base, maxDelay time.Duration, consecutiveFaults int) time.Duration {
	delay := base
	for i := 1; i < consecutiveFaults; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}
