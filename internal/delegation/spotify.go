// Package delegation はSpotifyへのOAuth2委任（認可コードフローとトークンリフレッシュ）と
// 利用者に代わってのプレイリスト取得を提供する。
package delegation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/listtoshift/internal/model"
)

const (
	defaultSpotifyAuthURL = "https://accounts.spotify.com"
	defaultSpotifyAPIURL  = "https://api.spotify.com"

	// defaultMaxResponseSize は外部APIレスポンスの読み込み上限。
	defaultMaxResponseSize = 5 * 1024 * 1024

	// fallbackTokenLifetime はexpires_inが返らなかった場合に仮定する有効期間。
	fallbackTokenLifetime = time.Hour
)

// SpotifyScopes は連携時に要求するスコープ。
var SpotifyScopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-read-email",
}

// SpotifyConfig はSpotifyクライアントの設定。
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL string
	APIURL  string

	MaxResponseSize int64
}

// TextSanitizer は外部から受け取った表示名を無害化する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// SpotifyClient はSpotifyのトークンエンドポイントとWeb APIを呼び出す。
type SpotifyClient struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	maxSize    int64
	sanitizer  TextSanitizer
}

// NewSpotifyClient はSpotifyClientを生成する。
// httpClientはトークン交換とAPI呼び出しの両方に使われる。sanitizerはnilでもよい。
func NewSpotifyClient(cfg SpotifyConfig, httpClient *http.Client, sanitizer TextSanitizer) *SpotifyClient {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultSpotifyAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultSpotifyAPIURL
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = defaultMaxResponseSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	authBase := strings.TrimRight(cfg.AuthURL, "/")
	return &SpotifyClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/authorize",
				TokenURL:  authBase + "/api/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
		maxSize:    cfg.MaxResponseSize,
		sanitizer:  sanitizer,
	}
}

// AuthCodeURL はstateを埋め込んだ同意画面のURLを返す。
func (c *SpotifyClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange は認可コードをトークンに交換する。
func (c *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return tok, nil
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
// 応答にリフレッシュトークンが含まれない場合は元のトークンを引き継ぐ。
func (c *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *SpotifyClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

type spotifyPlaylistsResponse struct {
	Items []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Tracks struct {
			Total int `json:"total"`
		} `json:"tracks"`
	} `json:"items"`
}

type spotifyTracksResponse struct {
	Items []struct {
		Track *struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			DurationMs int    `json:"duration_ms"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
}

// Playlists はアクセストークンの持ち主のプレイリスト一覧を取得する。
func (c *SpotifyClient) Playlists(ctx context.Context, accessToken string) ([]model.Playlist, error) {
	var resp spotifyPlaylistsResponse
	if err := c.getJSON(ctx, accessToken, c.apiURL+"/v1/me/playlists", &resp); err != nil {
		return nil, err
	}

	playlists := make([]model.Playlist, 0, len(resp.Items))
	for _, item := range resp.Items {
		playlists = append(playlists, model.Playlist{
			ID:     item.ID,
			Name:   c.clean(item.Name),
			Tracks: item.Tracks.Total,
		})
	}
	return playlists, nil
}

// PlaylistTracks は指定プレイリストの楽曲を最大100件取得する。
// 削除済みやローカルファイルでtrackがnullの要素は除外する。
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]model.Track, error) {
	endpoint := c.apiURL + "/v1/playlists/" + url.PathEscape(playlistID) + "/tracks?limit=100"

	var resp spotifyTracksResponse
	if err := c.getJSON(ctx, accessToken, endpoint, &resp); err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Track == nil {
			continue
		}
		names := make([]string, 0, len(item.Track.Artists))
		for _, a := range item.Track.Artists {
			names = append(names, c.clean(a.Name))
		}
		tracks = append(tracks, model.Track{
			ID:         item.Track.ID,
			Name:       c.clean(item.Track.Name),
			Artist:     strings.Join(names, ", "),
			DurationMs: item.Track.DurationMs,
		})
	}
	return tracks, nil
}

// getJSON はBearer認証付きでGETし、JSONをデコードする。
func (c *SpotifyClient) getJSON(ctx context.Context, accessToken, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify api returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *SpotifyClient) clean(s string) string {
	if c.sanitizer == nil {
		return s
	}
	return c.sanitizer.SanitizeText(s)
}
