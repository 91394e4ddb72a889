// Package model はドメインモデルを定義する。
package model

import "time"

// Account はメールアドレスとパスワードで登録したサービス利用者を表す。
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// PasswordHash はFindByEmailでのみ読み込まれる。レスポンスには含めない。
	PasswordHash string               `json:"-"`
	Delegation   *DelegatedCredential `json:"-"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// HasDelegation はSpotify連携が完了しているかを返す。
func (a *Account) HasDelegation() bool {
	return a.Delegation != nil && a.Delegation.RefreshToken != ""
}

// DelegatedCredential はSpotifyから払い出されたトークン一式を表す。
// accountsテーブルの列として埋め込みで保存する。
type DelegatedCredential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired はnow時点でアクセストークンのリフレッシュが必要かを返す。
// ExpiresAt == now は期限切れとして扱う。
func (d *DelegatedCredential) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// SignedToken は発行済みのBearerトークンを表す。永続化しない。
type SignedToken struct {
	Token     string    `json:"accessToken"`
	Subject   string    `json:"-"`
	Email     string    `json:"-"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}
