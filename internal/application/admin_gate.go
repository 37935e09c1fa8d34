package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

// AdminGate は管理者操作の前にトークンと権限を確認する
type AdminGate struct {
	resolver  admin.IdentityResolver
	directory admin.Directory
}

func NewAdminGate(resolver admin.IdentityResolver, directory admin.Directory) *AdminGate {
	return &AdminGate{resolver: resolver, directory: directory}
}

// Authorize はトークンを解決し、管理者であれば Identity を返す
func (g *AdminGate) Authorize(ctx context.Context, token string) (*admin.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, admin.ErrNoAuthorizationHeader
	}

	identity, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", admin.ErrInvalidToken, err)
	}

	ok, err := g.directory.IsAdmin(ctx, identity.Email)
	if err != nil {
		return nil, booking.Unavailable("管理者の確認に失敗", err)
	}
	if !ok {
		logger.Ctx(ctx).Warn("管理者以外による操作を拒否しました", zap.String("email", identity.Email))
		return nil, admin.ErrForbidden
	}
	return identity, nil
}
