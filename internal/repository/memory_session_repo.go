package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/adminpanel/internal/model"
)

// MemorySessionRepo はプロセス内メモリにセッションを保持するリポジトリ。
// 単一インスタンスでの開発・テスト用途。プロセス再起動でセッションは失われる。
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Create はセッションを保存する。
func (r *MemorySessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *MemorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var n int64
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// compile-time interface check
var _ SessionRepository = (*MemorySessionRepo)(nil)
