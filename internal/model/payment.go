package model

import "time"

// PaymentEvent は決済完了Webhookから記録した支払いを表す。
// 一度作成したら更新・削除しない。
type PaymentEvent struct {
	ID                string    `json:"id"`
	AccountRef        string    `json:"-"`
	ExternalPaymentID string    `json:"externalPaymentId"`
	Amount            int64     `json:"amount"` // 最小通貨単位
	Currency          string    `json:"currency"`
	EventType         string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}
