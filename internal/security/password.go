package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost はbcryptのコスト係数。
const PasswordCost = 10

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// ErrPasswordTooLong はパスワードがbcryptの上限を超えた場合のエラー。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordHasher はソルト付きの一方向ハッシュでパスワードを保護する。
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher はPasswordHasherを生成する。
// 存在しないアカウントへのログインでも同じ比較コストを払うため、ダミーハッシュを事前に生成する。
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid bcrypt cost: %d", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("listtoshift-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}
	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

// Hash はパスワードのハッシュを返す。
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify はパスワードがハッシュと一致するかを返す。
func (h *PasswordHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy はダミーハッシュと比較し、常にfalseを返す。
// 未登録メールアドレスのログインで処理時間を揃えるために使う。
func (h *PasswordHasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
	return false
}
