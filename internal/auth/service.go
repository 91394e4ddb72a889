// Package auth はメールアドレス・パスワード認証とBearerトークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/listtoshift/internal/model"
	"github.com/hitoshi/listtoshift/internal/repository"
	"github.com/hitoshi/listtoshift/internal/security"
)

// PasswordHasher はパスワードハッシュ処理のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	VerifyDummy(password string) bool
}

// AuthEventRecorder は認証イベントのメトリクス記録インターフェース。
type AuthEventRecorder interface {
	RecordSignup(result string)
	RecordLogin(result string)
}

// credentials はSignup入力の検証ルール。
type credentials struct {
	Email    string `validate:"required,email,max=320"`
	Password string `validate:"required"`
}

// CredentialService はアカウント登録・ログイン・トークン検証を提供する。
type CredentialService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	tokens   *TokenIssuer
	recorder AuthEventRecorder
	validate *validator.Validate
	now      func() time.Time
}

// NewCredentialService はCredentialServiceを生成する。recorderはnilでもよい。
func NewCredentialService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	recorder AuthEventRecorder,
) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NormalizeEmail は前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup はアカウントを作成し、新しいトークンを返す。
// 重複判定はストレージの一意制約に任せ、事前の存在確認は行わない。
func (s *CredentialService) Signup(ctx context.Context, email, password string) (*model.SignedToken, error) {
	email = NormalizeEmail(email)

	if err := s.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		s.recordSignup("invalid")
		return nil, fmt.Errorf("%w: email and password are required and email must be valid", model.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			s.recordSignup("invalid")
			return nil, fmt.Errorf("%w: password must be at most %d bytes", model.ErrInvalidInput, security.MaxPasswordBytes)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			s.recordSignup("duplicate")
			return nil, model.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	slog.Info("account created", slog.String("account_id", account.ID))
	s.recordSignup("success")
	return token, nil
}

// Login はメールアドレスとパスワードを検証し、新しいトークンを返す。
func (s *CredentialService) Login(ctx context.Context, email, password string) (*model.SignedToken, error) {
	account, err := s.VerifyPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrAuthenticationFailure) {
			s.recordLogin("failure")
		}
		return nil, err
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	s.recordLogin("success")
	return token, nil
}

// VerifyPassword はローカル認証を行い、成功した場合はアカウントを返す。
// 未登録メールアドレスでもダミーハッシュと比較し、処理時間から登録有無を推測できないようにする。
func (s *CredentialService) VerifyPassword(ctx context.Context, email, password string) (*model.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if account == nil {
		s.hasher.VerifyDummy(password)
		return nil, model.ErrAuthenticationFailure
	}
	if !s.hasher.Verify(account.PasswordHash, password) {
		return nil, model.ErrAuthenticationFailure
	}

	account.PasswordHash = ""
	return account, nil
}

// ValidateBearer はトークンを検証し、対応するアカウントを再取得して返す。
// トークンが有効でもアカウントが削除済みの場合は認証失敗とする。
func (s *CredentialService) ValidateBearer(ctx context.Context, token string) (*model.Account, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account no longer exists", model.ErrAuthenticationFailure)
	}

	return account, nil
}

func (s *CredentialService) recordSignup(result string) {
	if s.recorder != nil {
		s.recorder.RecordSignup(result)
	}
}

func (s *CredentialService) recordLogin(result string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(result)
	}
}
