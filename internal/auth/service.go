// Package auth はメールアドレス・パスワードとGoogleによるサインイン、トークン発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/hitoshi/carbonmarket/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost はパスワードハッシュのbcryptコスト。
const DefaultHashCost = 10

// TokenIssuer はベアラートークンを発行する。
type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
}

// UserSummary はサインイン応答に含めるユーザー情報。
type UserSummary struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// AuthResult はサインイン応答。
type AuthResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// Me は認証済みユーザー自身の情報。
type Me struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Provider  string  `json:"provider"`
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	issuer   TokenIssuer
	google   GoogleVerifier
	hashCost int
}

// NewService はServiceを生成する。googleがnilの場合、Googleサインインは無効になる。
func NewService(users repository.UserRepository, issuer TokenIssuer, google GoogleVerifier) *Service {
	return &Service{
		users:    users,
		issuer:   issuer,
		google:   google,
		hashCost: DefaultHashCost,
	}
}

// GoogleEnabled はGoogleサインインが設定されているかどうかを返す。
func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// Register はローカルユーザーを登録してトークンを発行する。
func (s *Service) Register(ctx context.Context, email, password string, name *string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError(model.ErrCodeEmailPasswordReq, "email and password required")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailInUseError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	user, err := s.users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: &hashStr,
		Provider:     model.ProviderLocal,
		Name:         name,
	})
	if err != nil {
		// 事前確認と挿入の間に同じメールアドレスで登録された場合
		if database.IsUniqueViolation(err) {
			return nil, model.NewEmailInUseError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return s.result(user, false)
}

// Login はメールアドレスとパスワードを照合してトークンを発行する。
// 該当ユーザーなし、パスワード未設定、不一致はいずれも同じエラーになる。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError(model.ErrCodeEmailPasswordReq, "email and password required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.result(user, false)
}

// Me は認証済みユーザーの情報を返す。
func (s *Service) Me(ctx context.Context, userID string) (*Me, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError(model.ErrCodeUserNotFound)
	}
	return &Me{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
	}, nil
}

// GoogleSignIn はGoogleのIDトークンでサインインする。
// 未登録なら google ユーザーを作成し、Google未連携のローカルユーザーには連携する。
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.google == nil {
		return nil, model.NewNotFoundError("")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, model.NewValidationError(model.ErrCodeIDTokenRequired, "idToken required")
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		slog.Warn("google token verification failed", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError(model.ErrCodeInvalidGoogleToken, "Failed to verify Google token")
	}

	user, err := s.users.FindByGoogleSub(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google sub: %w", err)
	}
	if user == nil {
		user, err = s.users.FindByEmail(ctx, normalizeEmail(identity.Email))
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
	}

	switch {
	case user == nil:
		sub := identity.Subject
		user, err = s.users.Create(ctx, &model.User{
			Email:     normalizeEmail(identity.Email),
			Provider:  model.ProviderGoogle,
			GoogleSub: &sub,
			Name:      identity.Name,
			AvatarURL: identity.Picture,
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return nil, model.NewEmailInUseError()
			}
			return nil, fmt.Errorf("failed to create google user: %w", err)
		}
		slog.Info("google user created", slog.String("user_id", user.ID))
	case user.GoogleSub == nil:
		linked, err := s.users.LinkGoogle(ctx, user.ID, identity.Subject, identity.Name, identity.Picture)
		if err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		if linked == nil {
			return nil, errors.New("user disappeared while linking google account")
		}
		user = linked
		slog.Info("google account linked", slog.String("user_id", user.ID))
	}

	return s.result(user, true)
}

func (s *Service) result(user *model.User, withAvatar bool) (*AuthResult, error) {
	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	summary := UserSummary{ID: user.ID, Email: user.Email, Name: user.Name}
	if withAvatar {
		summary.AvatarURL = user.AvatarURL
	}
	return &AuthResult{Token: token, User: summary}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
