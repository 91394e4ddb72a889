package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/listtoshift/internal/model"
)

// pgUniqueViolation はPostgreSQLの一意制約違反を表すSQLSTATE。
const pgUniqueViolation = "23505"

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	var access, refresh sql.NullString
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, spotify_access_token, spotify_refresh_token, spotify_expires_at, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Email, &access, &refresh, &expiresAt, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}

	account.Delegation = delegationFromColumns(access, refresh, expiresAt)
	return account, nil
}

// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	account := &model.Account{}
	var access, refresh sql.NullString
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, spotify_access_token, spotify_refresh_token, spotify_expires_at, created_at, updated_at
		 FROM accounts WHERE email = $1`,
		email,
	).Scan(&account.ID, &account.Email, &account.PasswordHash, &access, &refresh, &expiresAt, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	account.Delegation = delegationFromColumns(access, refresh, expiresAt)
	return account, nil
}

// Create はアカウントを作成する。
// 一意制約違反はmodel.ErrDuplicateAccountに変換する。事前の存在確認は行わない。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Email, account.PasswordHash, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return model.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// UpdateDelegation はSpotifyのトークン一式を上書き保存する。
func (r *PostgresAccountRepo) UpdateDelegation(ctx context.Context, id string, cred *model.DelegatedCredential) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET spotify_access_token = $2, spotify_refresh_token = $3, spotify_expires_at = $4, updated_at = now()
		 WHERE id = $1`,
		id, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update delegation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// DeleteByID は指定IDのアカウントを削除する。
// 決済イベントは外部キーを持たないため削除されずに残る。
func (r *PostgresAccountRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// delegationFromColumns はNULL許容列からDelegatedCredentialを組み立てる。
// リフレッシュトークンが無い場合は未連携としてnilを返す。
func delegationFromColumns(access, refresh sql.NullString, expiresAt sql.NullTime) *model.DelegatedCredential {
	if !refresh.Valid || refresh.String == "" {
		return nil
	}
	return &model.DelegatedCredential{
		AccessToken:  access.String,
		RefreshToken: refresh.String,
		ExpiresAt:    expiresAt.Time,
	}
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
