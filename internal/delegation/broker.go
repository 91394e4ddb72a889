package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/listtoshift/internal/model"
	"github.com/hitoshi/listtoshift/internal/repository"
)

// DefaultStateTTL はstateの既定の有効期間。
const DefaultStateTTL = 10 * time.Minute

// Upstream はSpotifyのトークンエンドポイントとWeb APIの呼び出しインターフェース。
type Upstream interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Playlists(ctx context.Context, accessToken string) ([]model.Playlist, error)
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]model.Track, error)
}

// UpstreamRecorder は外部API呼び出しのメトリクス記録インターフェース。
type UpstreamRecorder interface {
	RecordTokenRefresh(result string)
	RecordUpstreamRequest(operation, result string, duration time.Duration)
}

// BrokerOption はBrokerの任意設定。
type BrokerOption func(*Broker)

// WithStateTTL はstateの有効期間を設定する。
func WithStateTTL(ttl time.Duration) BrokerOption {
	return func(b *Broker) {
		if ttl > 0 {
			b.stateTTL = ttl
		}
	}
}

// WithUpstreamTimeout は外部呼び出し1回あたりのタイムアウトを設定する。
func WithUpstreamTimeout(timeout time.Duration) BrokerOption {
	return func(b *Broker) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(recorder UpstreamRecorder) BrokerOption {
	return func(b *Broker) {
		b.recorder = recorder
	}
}

// WithClock はテスト用に現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		b.now = now
	}
}

// Broker はSpotifyへの委任（同意・コード交換・リフレッシュ・リソース取得）を仲介する。
type Broker struct {
	accounts repository.AccountRepository
	upstream Upstream
	states   StateStore
	stateTTL time.Duration
	timeout  time.Duration
	recorder UpstreamRecorder
	now      func() time.Time

	// アカウント単位でリフレッシュを直列化する
	flight singleflight.Group
}

// NewBroker はBrokerを生成する。
func NewBroker(accounts repository.AccountRepository, upstream Upstream, states StateStore, opts ...BrokerOption) *Broker {
	b := &Broker{
		accounts: accounts,
		upstream: upstream,
		states:   states,
		stateTTL: DefaultStateTTL,
		timeout:  10 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildConsentURL はstateを埋め込んだSpotifyの同意画面URLを返す。
// stateとアカウントの紐付けは呼び出し側の責務。
func (b *Broker) BuildConsentURL(state string) string {
	return b.upstream.AuthCodeURL(state)
}

// StartConsent はstateを生成してアカウントに紐付け、同意画面URLを返す。
func (b *Broker) StartConsent(ctx context.Context, accountID string) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}
	if err := b.states.Save(ctx, state, accountID, b.stateTTL); err != nil {
		return "", err
	}
	return b.BuildConsentURL(state), nil
}

// CompleteConsent はコールバックのstateを検証してコードを交換し、連携したアカウントIDを返す。
func (b *Broker) CompleteConsent(ctx context.Context, state, code string) (string, error) {
	accountID, err := b.states.Consume(ctx, state)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("%w: authorization code is required", model.ErrInvalidInput)
	}
	if err := b.ExchangeCode(ctx, accountID, code); err != nil {
		return "", err
	}
	return accountID, nil
}

// ExchangeCode は認可コードをトークンに交換し、アカウントの委任情報として保存する。
// 交換に失敗した場合は何も書き込まない。
func (b *Broker) ExchangeCode(ctx context.Context, accountID, code string) error {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	tok, err := b.upstream.Exchange(callCtx, code)
	b.recordUpstream("exchange", err, time.Since(start))
	if err != nil {
		slog.Warn("spotify code exchange failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}

	cred := b.credentialFrom(tok, "")
	if err := b.accounts.UpdateDelegation(ctx, accountID, cred); err != nil {
		return fmt.Errorf("failed to store delegation: %w", err)
	}

	slog.Info("spotify account linked", slog.String("account_id", accountID))
	return nil
}

// GetValidAccessToken は有効なアクセストークンを返す。
// 期限切れの場合はリフレッシュして保存し、accountの委任情報も更新する。
// リフレッシュに失敗した場合は既存の委任情報を変更しない。
func (b *Broker) GetValidAccessToken(ctx context.Context, account *model.Account) (string, error) {
	if !account.HasDelegation() {
		return "", model.ErrDelegationNotLinked
	}
	if !account.Delegation.Expired(b.now()) {
		return account.Delegation.AccessToken, nil
	}

	v, err, _ := b.flight.Do(account.ID, func() (interface{}, error) {
		return b.refresh(context.WithoutCancel(ctx), account)
	})
	if err != nil {
		return "", err
	}

	cred := v.(*model.DelegatedCredential)
	account.Delegation = &model.DelegatedCredential{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    cred.ExpiresAt,
	}
	return cred.AccessToken, nil
}

// refresh はストアの最新状態を確認してからリフレッシュする。
// 別のリクエストが直前にリフレッシュ済みであれば、その結果を使う。
func (b *Broker) refresh(ctx context.Context, account *model.Account) (*model.DelegatedCredential, error) {
	current := account.Delegation
	latest, err := b.accounts.FindByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload account: %w", err)
	}
	if latest == nil {
		return nil, model.ErrAccountNotFound
	}
	if latest.HasDelegation() {
		if !latest.Delegation.Expired(b.now()) {
			return latest.Delegation, nil
		}
		current = latest.Delegation
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	tok, err := b.upstream.Refresh(callCtx, current.RefreshToken)
	b.recordUpstream("refresh", err, time.Since(start))
	if err != nil {
		b.recordRefresh("failure")
		slog.Warn("spotify token refresh failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}

	cred := b.credentialFrom(tok, current.RefreshToken)
	if err := b.accounts.UpdateDelegation(ctx, account.ID, cred); err != nil {
		b.recordRefresh("failure")
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	b.recordRefresh("success")
	return cred, nil
}

// ListPlaylists はアカウントのSpotifyプレイリスト一覧を返す。
func (b *Broker) ListPlaylists(ctx context.Context, accountID string) ([]model.Playlist, error) {
	token, err := b.tokenFor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	playlists, err := b.upstream.Playlists(callCtx, token)
	b.recordUpstream("playlists", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	return playlists, nil
}

// ListTracks は指定プレイリストの楽曲一覧を返す。
func (b *Broker) ListTracks(ctx context.Context, accountID, playlistID string) ([]model.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", model.ErrInvalidInput)
	}

	token, err := b.tokenFor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	tracks, err := b.upstream.PlaylistTracks(callCtx, token, playlistID)
	b.recordUpstream("tracks", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	return tracks, nil
}

func (b *Broker) tokenFor(ctx context.Context, accountID string) (string, error) {
	account, err := b.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return "", model.ErrAccountNotFound
	}
	return b.GetValidAccessToken(ctx, account)
}

// credentialFrom はトークン応答を委任情報に変換する。
// expires_inが返らなかった場合は既定の有効期間を仮定する。
func (b *Broker) credentialFrom(tok *oauth2.Token, fallbackRefresh string) *model.DelegatedCredential {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = b.now().Add(fallbackTokenLifetime)
	}
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = fallbackRefresh
	}
	return &model.DelegatedCredential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

func (b *Broker) recordUpstream(operation string, err error, d time.Duration) {
	if b.recorder == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
	}
	b.recorder.RecordUpstreamRequest(operation, result, d)
}

func (b *Broker) recordRefresh(result string) {
	if b.recorder != nil {
		b.recorder.RecordTokenRefresh(result)
	}
}

var _ Upstream = (*SpotifyClient)(nil)
