// Command venille は生理周期サポート用メッセージングボットを起動する。
//
// 使い方:
//
//	venille [bot|migrate|logout|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/venille/internal/app"
)

func main() {
	// .env は任意。存在しない場合は環境変数のみを使う。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "venille: %v\n", err)
		os.Exit(1)
	}
}
