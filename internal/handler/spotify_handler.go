package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/listtoshift/internal/model"
)

// DelegationServiceInterface はSpotifyハンドラーが必要とするサービスインターフェース。
type DelegationServiceInterface interface {
	StartConsent(ctx context.Context, accountID string) (string, error)
	CompleteConsent(ctx context.Context, state, code string) (string, error)
	ListPlaylists(ctx context.Context, accountID string) ([]model.Playlist, error)
	ListTracks(ctx context.Context, accountID, playlistID string) ([]model.Track, error)
}

// SpotifyHandler はSpotify連携とプレイリスト取得のHTTPハンドラー。
type SpotifyHandler struct {
	service DelegationServiceInterface
	baseURL string
}

// NewSpotifyHandler はSpotifyHandlerを生成する。
// baseURLは連携完了後のリダイレクト先の基準URL。
func NewSpotifyHandler(service DelegationServiceInterface, baseURL string) *SpotifyHandler {
	return &SpotifyHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Consent はstateをアカウントに紐付け、Spotifyの同意画面URLを返す。
// GET /spotify/consent
func (h *SpotifyHandler) Consent(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	url, err := h.service.StartConsent(r.Context(), a.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Callback はSpotifyからのリダイレクトを処理する。
// GET /spotify/callback?code=xxx&state=yyy
func (h *SpotifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		slog.Warn("spotify consent denied", slog.String("error", upstreamErr))
		http.Redirect(w, r, h.baseURL+"/dashboard?spotify=denied", http.StatusFound)
		return
	}

	accountID, err := h.service.CompleteConsent(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("spotify consent completed", slog.String("account_id", accountID))
	http.Redirect(w, r, h.baseURL+"/dashboard", http.StatusFound)
}

// Playlists はログインアカウントのプレイリスト一覧を返す。
// GET /spotify/playlists
func (h *SpotifyHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	playlists, err := h.service.ListPlaylists(r.Context(), a.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

// Tracks は指定プレイリストの楽曲一覧を返す。
// GET /spotify/playlists/{id}
func (h *SpotifyHandler) Tracks(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	tracks, err := h.service.ListTracks(r.Context(), a.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}
