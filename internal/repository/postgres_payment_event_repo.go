package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/listtoshift/internal/model"
)

// PostgresPaymentEventRepo はPostgreSQLを使用した決済イベントリポジトリ。
type PostgresPaymentEventRepo struct {
	db *sql.DB
}

// NewPostgresPaymentEventRepo はPostgresPaymentEventRepoを生成する。
func NewPostgresPaymentEventRepo(db *sql.DB) *PostgresPaymentEventRepo {
	return &PostgresPaymentEventRepo{db: db}
}

// InsertIfAbsent はON CONFLICT DO NOTHINGで冪等に記録する。
// 同一external_payment_idの同時配送でも1行しか作成されない。
func (r *PostgresPaymentEventRepo) InsertIfAbsent(ctx context.Context, event *model.PaymentEvent) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_events (id, account_ref, external_payment_id, amount, currency, event_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (external_payment_id) DO NOTHING`,
		event.ID, event.AccountRef, event.ExternalPaymentID, event.Amount, event.Currency, event.EventType, event.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert payment event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ListByAccountRef はアカウントに紐づく決済イベントを新しい順に返す。
func (r *PostgresPaymentEventRepo) ListByAccountRef(ctx context.Context, accountRef string) ([]*model.PaymentEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_ref, external_payment_id, amount, currency, event_type, created_at
		 FROM payment_events WHERE account_ref = $1
		 ORDER BY created_at DESC`,
		accountRef,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer rows.Close()

	var events []*model.PaymentEvent
	for rows.Next() {
		e := &model.PaymentEvent{}
		if err := rows.Scan(&e.ID, &e.AccountRef, &e.ExternalPaymentID, &e.Amount, &e.Currency, &e.EventType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment events: %w", err)
	}
	return events, nil
}

// compile-time interface check
var _ PaymentEventRepository = (*PostgresPaymentEventRepo)(nil)
