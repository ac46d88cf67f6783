package e2e_test

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "rookery-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if testCleanup != nil {
		testCleanup()
	}
	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// ServerConfig holds configuration for starting the rookery server.
type ServerConfig struct {
	Port          int
	BasePath      string // default /resource
	Driver        string // filesystem, memory, database
	StoragePath   string
	Seed          string
	DBType        string // sqlite, postgres
	DBDSN         string
	MaxUploadSize int64
	Metrics       bool
}

// buildBinary compiles the rookery binary once per test run.
// Returns the path to the compiled binary.
func buildBinary(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "rookery")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/rookery")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes a config file for cfg and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/resource"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "server:\n  port: %d\n  base_path: %s\n  max_upload_size: %d\n  shutdown_timeout: 5s\n\n",
		cfg.Port, basePath, cfg.MaxUploadSize)

	fmt.Fprintf(&sb, "storage:\n  driver: %s\n", cfg.Driver)
	if cfg.StoragePath != "" {
		fmt.Fprintf(&sb, "  path: %q\n", cfg.StoragePath)
	}
	if cfg.Seed != "" {
		fmt.Fprintf(&sb, "  seed: %q\n", cfg.Seed)
	}

	if cfg.DBType != "" {
		fmt.Fprintf(&sb, "\ndatabase:\n  type: %s\n  dsn: %q\n", cfg.DBType, cfg.DBDSN)
	}

	fmt.Fprintf(&sb, "\nmetrics:\n  enabled: %t\n", cfg.Metrics)
	sb.WriteString("\nlog:\n  level: error\n")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte(sb.String()), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// runCommand runs a rookery subcommand with the config for cfg.
func runCommand(t *testing.T, cfg ServerConfig, args ...string) (string, error) {
	t.Helper()

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	cmd := exec.Command(binary, append(args, "--config", configPath)...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// startServer starts the rookery binary with the given configuration.
// Returns the server origin and a cleanup function that stops the server.
func startServer(t *testing.T, cfg ServerConfig) (string, func()) {
	t.Helper()

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	require.NoError(t, err, "start server")

	origin := fmt.Sprintf("http://localhost:%d", cfg.Port)

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/resource"
	}
	waitForServer(t, origin+basePath, 10*time.Second)

	cleanup := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	}

	return origin, cleanup
}

// waitForServer polls the collection root until it answers.
func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port

	err = l.Close()
	require.NoError(t, err, "close port")

	return port
}
