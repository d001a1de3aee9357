// gamblr はNBA選手のスタッツ検索とベットライン判定を提供するWebアプリケーション。
//
// 使い方:
//
//	gamblr [serve]              Webサーバーを起動する
//	gamblr worker               期限切れセッションのクリーンアップを定期実行する
//	gamblr migrate              データベースマイグレーションを適用する
//	gamblr deleteuser <name>    ユーザーを削除する
//	gamblr healthcheck          /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/gamblr/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
