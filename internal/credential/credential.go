// Package credential はベアラートークン（HS256署名のJWT）の発行と検証を提供する。
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL はトークンの既定有効期間（7日）。
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidCredential は署名不正、期限切れ、形式不正のいずれかを表す。
var ErrInvalidCredential = errors.New("invalid credential")

// Claims はトークンに含める主体情報。id と email 以外のアプリケーションクレームは持たない。
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer はトークンを発行・検証する。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue は主体IDとメールアドレスを含むトークンを発行する。
func (i *Issuer) Issue(subjectID, email string) (string, error) {
	now := i.now()
	claims := Claims{
		ID:    subjectID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 失敗理由に関わらずErrInvalidCredentialをラップして返す。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
