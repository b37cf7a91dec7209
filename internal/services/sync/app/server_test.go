package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestServerServesHealthz(t *testing.T) {
	t.Setenv("SYNCD_DB_PATH", filepath.Join(t.TempDir(), "sync.db"))
	t.Setenv("SYNCD_TOKEN_SECRET", "test-secret")

	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	url := fmt.Sprintf("http://%s/healthz", server.Addr())
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		cancel()
		t.Fatalf("healthz request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewRequiresTokenSecret(t *testing.T) {
	t.Setenv("SYNCD_DB_PATH", filepath.Join(t.TempDir(), "sync.db"))
	t.Setenv("SYNCD_TOKEN_SECRET", "")

	if _, err := NewWithAddr("127.0.0.1:0"); err == nil {
		t.Fatal("expected missing token secret error")
	}
}

func TestLoadServerEnvDefaultsDBPath(t *testing.T) {
	t.Setenv("SYNCD_DB_PATH", "")

	env := loadServerEnv()
	if env.DBPath != filepath.Join("data", "sync.db") {
		t.Fatalf("db path = %q, want default", env.DBPath)
	}
}

func TestRebuildStreamHeadsOnFreshStore(t *testing.T) {
	t.Setenv("SYNCD_DB_PATH", filepath.Join(t.TempDir(), "sync.db"))

	if err := RebuildStreamHeads(context.Background()); err != nil {
		t.Fatalf("rebuild stream heads: %v", err)
	}
}
