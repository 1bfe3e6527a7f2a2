// Command adminpanel は管理パネルのBFFサーバー、セッション削除ワーカー、マイグレーションを起動する。
//
//	adminpanel [serve|worker|cleanup|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/adminpanel/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
