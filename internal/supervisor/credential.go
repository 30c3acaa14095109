package supervisor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
)

// qrImageBase はホスト環境で表示するQR画像生成サービスのURL。
const qrImageBase = "https://api.qrserver.com/v1/create-qr-code/?size=400x400&data="

// QRImageURL は資格情報コードをQR画像として表示するURLを返す。
func QRImageURL(code string) string {
	return qrImageBase + url.QueryEscape(code)
}

// RenderCredential は資格情報コードをオペレーター向けに出力する。
// 対話環境ではターミナルにQRコードを描画し、ホスト環境では画像URLと生データを出力する。
func RenderCredential(w io.Writer, code string, interactive bool) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, "Authentication required")
	fmt.Fprintln(w, rule)
	if interactive {
		fmt.Fprintln(w, "Scan this QR code with the messaging app:")
		qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
	} else {
		fmt.Fprintln(w, "Open this link to view the QR code:")
		fmt.Fprintln(w, QRImageURL(code))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Or use this raw data in any QR code generator:")
		fmt.Fprintln(w, code)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Settings > Linked Devices > Link Device")
	}
	fmt.Fprintln(w, rule)
}

// writeCredentialFile は資格情報コードをファイルに保存する。
func writeCredentialFile(path, code string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// removeCredentialFile は資格情報ファイルを削除する。存在しない場合もエラーにしない。
func removeCredentialFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
