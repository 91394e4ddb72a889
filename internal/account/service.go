// Package account はログイン済みアカウントのプロフィール参照・寄付履歴・退会を提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/listtoshift/internal/model"
	"github.com/hitoshi/listtoshift/internal/repository"
)

// Profile は/auth/meで返すアカウント情報。
type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	SpotifyLinked bool      `json:"spotifyLinked"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Service はアカウント管理のサービス層。
type Service struct {
	accounts repository.AccountRepository
	payments repository.PaymentEventRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(accounts repository.AccountRepository, payments repository.PaymentEventRepository) *Service {
	return &Service{accounts: accounts, payments: payments}
}

// ProfileOf はアカウントの公開用プロフィールを組み立てる。
func ProfileOf(a *model.Account) *Profile {
	return &Profile{
		ID:            a.ID,
		Email:         a.Email,
		SpotifyLinked: a.HasDelegation(),
		CreatedAt:     a.CreatedAt,
	}
}

// GetProfile は指定アカウントのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.ErrAccountNotFound
	}
	return ProfileOf(a), nil
}

// Donations はアカウントの寄付履歴を新しい順に返す。
func (s *Service) Donations(ctx context.Context, accountID string) ([]*model.PaymentEvent, error) {
	events, err := s.payments.ListByAccountRef(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("寄付履歴の取得に失敗しました: %w", err)
	}
	if events == nil {
		events = []*model.PaymentEvent{}
	}
	return events, nil
}

// Withdraw はアカウントの退会処理を実行する。
// Spotify連携情報はアカウント行と一緒に削除される。決済イベントは会計記録として残す。
// 削除後は発行済みのBearerトークンも検証に失敗するようになる。
func (s *Service) Withdraw(ctx context.Context, accountID string) error {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if a == nil {
		return model.ErrAccountNotFound
	}

	slog.Info("退会処理を開始します",
		slog.String("account_id", accountID),
	)

	if err := s.accounts.DeleteByID(ctx, accountID); err != nil {
		return fmt.Errorf("アカウントの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("account_id", accountID),
	)

	return nil
}
