package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/listtoshift/internal/model"
)

// Claims はBearerトークンに含めるクレーム。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer はHS256署名のBearerトークンを発行・検証する。
// 署名鍵と有効期間は生成後に変更しない。
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。nowがnilの場合はtime.Nowを使う。
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %s", ttl)
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{key: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue はsubjectとemailを埋め込んだトークンを発行する。
// 有効期限は発行時刻 + TTL。時刻は秒精度に切り捨てる。
func (i *TokenIssuer) Issue(subject, email string) (*model.SignedToken, error) {
	issuedAt := i.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.SignedToken{
		Token:     signed,
		Subject:   subject,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify はトークンの署名と有効期限を検証してクレームを返す。
// 有効期限ちょうどの時刻は期限切れとして扱う。
// 失敗理由に関わらずmodel.ErrAuthenticationFailureをラップして返す。
func (i *TokenIssuer) Verify(tokenText string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenText, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAuthenticationFailure, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", model.ErrAuthenticationFailure)
	}
	return claims, nil
}
