// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/listtoshift/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	// パスワードハッシュは読み込まない。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail は正規化済みメールアドレスでアカウントを取得する。
	// ログイン検証用にパスワードハッシュを含めて返す。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create はアカウントを作成する。
	// メールアドレスが既に存在する場合はmodel.ErrDuplicateAccountを返す。
	Create(ctx context.Context, account *model.Account) error

	// UpdateDelegation はSpotifyのトークン一式を上書き保存する。
	// アカウントが存在しない場合はmodel.ErrAccountNotFoundを返す。
	UpdateDelegation(ctx context.Context, id string, cred *model.DelegatedCredential) error

	// DeleteByID は指定IDのアカウントを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// PaymentEventRepository は決済イベントの永続化インターフェース。
type PaymentEventRepository interface {
	// InsertIfAbsent はexternal_payment_idが未登録の場合のみイベントを記録する。
	// 新規に記録した場合はtrue、既に存在した場合はfalseを返す。
	InsertIfAbsent(ctx context.Context, event *model.PaymentEvent) (bool, error)

	// ListByAccountRef はアカウントに紐づく決済イベントを新しい順に返す。
	ListByAccountRef(ctx context.Context, accountRef string) ([]*model.PaymentEvent, error)
}
