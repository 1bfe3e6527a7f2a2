package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/adminpanel/internal/apiclient"
)

// 取得対象のコレクション
const (
	pathUsers          = "users"
	pathFinancas       = "financas"
	pathCompromissos   = "compromissos"
	pathConteudo       = "conteudo"
	pathGamificacao    = "gamificacao"
	pathFeedback       = "feedback"
	pathSupportMetrics = "metrics/support"
)

// fetchTarget はバッチで取得する1コレクションとデコード先。
type fetchTarget struct {
	path string
	dst  any
}

func target(path string, dst any) fetchTarget {
	return fetchTarget{path: path, dst: dst}
}

// loadAll は全コレクションを並行に取得する。
// 1件でも失敗すると残りの取得をキャンセルし、最初のエラーを返す。
// エラー時にデコード先に残った値は使用してはならない。
func loadAll(ctx context.Context, api apiclient.Requester, auth apiclient.Auth, targets ...fetchTarget) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			res, err := api.Do(gctx, auth, http.MethodGet, t.path, nil)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", t.path, err)
			}
			if !res.IsJSON() {
				return fmt.Errorf("failed to load %s: %w", t.path, errNotJSON)
			}
			if err := res.Decode(t.dst); err != nil {
				return fmt.Errorf("failed to load %s: %w", t.path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

var errNotJSON = errors.New("response is not JSON")
