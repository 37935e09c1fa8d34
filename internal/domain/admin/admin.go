package admin

import (
	"context"
	"errors"
	"fmt"
)

// 認証・認可のエラー定義
var (
	ErrUnauthorized          = errors.New("認証が必要です")
	ErrNoAuthorizationHeader = fmt.Errorf("%w: Authorizationヘッダーがありません", ErrUnauthorized)
	ErrInvalidToken          = fmt.Errorf("%w: トークンが無効です", ErrUnauthorized)
	ErrForbidden             = errors.New("管理者権限がありません")
)

// Identity は認証済みユーザー
type Identity struct {
	UserID string
	Email  string
}

// IdentityResolver はベアラートークンをユーザーに解決する
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// Directory は管理者メールアドレスの一覧を照会する
type Directory interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}
