package server

import (
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mostlygeek/action-bus/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newTestServer builds a Server from inline YAML.
func newTestServer(t *testing.T, yaml string) *Server {
	t.Helper()

	cfg, err := config.LoadConfigFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("loading test config: %v", err)
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("creating test server: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}
