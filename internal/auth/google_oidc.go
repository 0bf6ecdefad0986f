package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer はGoogleのOpenID Connect発行者URL。
const GoogleIssuer = "https://accounts.google.com"

// GoogleIdentity はGoogleのIDトークンから取り出した本人情報。
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    *string
	Picture *string
}

// GoogleVerifier はGoogleのIDトークンを検証する。
type GoogleVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error)
}

// OIDCGoogleVerifier はgo-oidcでIDトークンの署名・発行者・audienceを検証する。
type OIDCGoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier はGoogleのディスカバリ文書を取得してOIDCGoogleVerifierを生成する。
// clientIDがIDトークンのaudienceとして要求される。
func NewGoogleVerifier(ctx context.Context, clientID string) (*OIDCGoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover google provider: %w", err)
	}
	return NewOIDCGoogleVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCGoogleVerifier は構築済みのIDTokenVerifierを包む。
func NewOIDCGoogleVerifier(v *oidc.IDTokenVerifier) *OIDCGoogleVerifier {
	return &OIDCGoogleVerifier{verifier: v}
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify はIDトークンを検証し、subjectとemailを含む本人情報を返す。
// email_verifiedがtrueでないトークンは拒否する。
func (g *OIDCGoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var c googleClaims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if idToken.Subject == "" || c.Email == "" {
		return nil, errors.New("id token lacks sub or email")
	}
	// 未確認のメールアドレスでは既存ユーザーへの連携を許さない。
	if !c.EmailVerified {
		return nil, errors.New("id token email is not verified")
	}

	return &GoogleIdentity{
		Subject: idToken.Subject,
		Email:   c.Email,
		Name:    optional(c.Name),
		Picture: optional(c.Picture),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ GoogleVerifier = (*OIDCGoogleVerifier)(nil)
