package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
)

var (
	ErrEmptySecret  = errors.New("JWTシークレットが設定されていません")
	ErrMissingEmail = errors.New("トークンに email クレームがありません")
)

// Claims は管理画面のアクセストークンのクレーム
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTResolver は HS256 で署名されたベアラートークンを Identity に解決する
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTResolver(secret string) (*JWTResolver, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &JWTResolver{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Resolve はトークンを検証し、sub と email から Identity を返す
func (r *JWTResolver) Resolve(ctx context.Context, token string) (*admin.Identity, error) {
	claims := &Claims{}
	parsed, err := r.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &admin.Identity{UserID: claims.Subject, Email: email}, nil
}

// Issue は sub / email を持つトークンを発行する。ローカル環境とテストで使う
func (r *JWTResolver) Issue(sub, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
