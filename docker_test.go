package listtoshift_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBinaryAndEntrypoint(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "./cmd/listtoshift") {
		t.Error("Dockerfile should build ./cmd/listtoshift")
	}
	if !strings.Contains(content, `ENTRYPOINT ["/listtoshift"]`) {
		t.Error("Dockerfile should use the listtoshift binary as ENTRYPOINT")
	}
	// distrolessにはcurlがないためhealthcheckサブコマンドを使う
	if !strings.Contains(content, `"healthcheck"`) {
		t.Error("Dockerfile HEALTHCHECK should use the healthcheck subcommand")
	}
}

func TestDockerComposeServices(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	for _, svc := range []string{"api:", "migrate:", "db:", "redis:"} {
		if !strings.Contains(content, svc) {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}
	if !strings.Contains(content, "postgres:") {
		t.Error("docker-compose.yml should use PostgreSQL image")
	}
	if !strings.Contains(content, `command: ["migrate"]`) {
		t.Error("migrate service should run the migrate subcommand")
	}
	if !strings.Contains(content, "REDIS_URL:") {
		t.Error("api service should receive REDIS_URL for the oauth state store")
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// 内部ネットワークの定義（internal: true）
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true) for egress restriction")
	}
	if !strings.Contains(content, "external") {
		t.Error("docker-compose.yml should define an external network for api egress")
	}
}
