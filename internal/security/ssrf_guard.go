// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService は外部APIへの送信を安全に行うためのインターフェースを定義する。
// Spotifyのトークン交換とAPI呼び出しで使用される。
type SSRFGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// 許可ホストが設定されている場合、それ以外への接続は拒否される。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL は設定された外部URLの安全性を起動時に検証する。
	ValidateURL(rawURL string) error
}

// allowedSchemes は外部API呼び出しで許可されるURLスキーム。
var allowedSchemes = []string{"https"}

// blockedNetworks はSSRF防止でブロックされるネットワーク範囲。
// パッケージ初期化時に1回だけパースし、ValidateURLでの検証に使用する。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// ssrfGuard はSSRFGuardServiceの実装。
type ssrfGuard struct {
	allowedHosts []string
}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
// allowedHostsを指定した場合、接続先はそのホストに限定される。
func NewSSRFGuard(allowedHosts ...string) *ssrfGuard {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &ssrfGuard{allowedHosts: hosts}
}

// HostOf はURLからホスト名を取り出す。パースできない場合は空文字列を返す。
func HostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// DNS再バインディング攻撃にも対応している。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	builder := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(443)
	if len(g.allowedHosts) > 0 {
		builder = builder.SetAllowedHosts(g.allowedHosts...)
	}

	wrappedClient := safeurl.Client(builder.Build())
	return wrappedClient.Client
}

// ValidateURL は外部URLの安全性を事前に検証する。
// DNS解決を伴わない静的な検証を行う。
func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
	} else if host == "localhost" {
		return fmt.Errorf("blocked host: %s", host)
	}

	if len(g.allowedHosts) > 0 && !g.isAllowedHost(host) {
		return fmt.Errorf("host is not in the allow list: %s", host)
	}

	return nil
}

func (g *ssrfGuard) isAllowedHost(host string) bool {
	for _, allowed := range g.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
