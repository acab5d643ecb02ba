package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/canescan/internal/history"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand string
	LastOutput  string
	LastStderr  string
	LastError   error

	// Test environment
	TempDir     string
	originalDir string
	savedEnv    map[string]*string

	// Server state
	Server  *httptest.Server
	History *history.Store

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
	lastHistoryID      string
}

// NewTestContext creates a scenario workspace and makes it the working
// directory. HOME and the XDG directories point into it so no user
// configuration or history leaks into a scenario.
func NewTestContext() (*TestContext, error) {
	originalDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "canescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	testCtx := &TestContext{
		TempDir:         tempDir,
		originalDir:     originalDir,
		savedEnv:        map[string]*string{},
		LastHTTPHeaders: map[string]string{},
	}
	testCtx.SetEnv("HOME", tempDir)
	testCtx.SetEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, "config"))
	testCtx.SetEnv("XDG_DATA_HOME", filepath.Join(tempDir, "data"))
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "CANESCAN_") {
			testCtx.UnsetEnv(name)
		}
	}

	if err := os.Chdir(tempDir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	return testCtx, nil
}

// SetEnv sets an environment variable until Cleanup.
func (testCtx *TestContext) SetEnv(name, value string) {
	testCtx.remember(name)
	_ = os.Setenv(name, value)
}

// UnsetEnv removes an environment variable until Cleanup.
func (testCtx *TestContext) UnsetEnv(name string) {
	testCtx.remember(name)
	_ = os.Unsetenv(name)
}

func (testCtx *TestContext) remember(name string) {
	if _, seen := testCtx.savedEnv[name]; seen {
		return
	}
	if v, ok := os.LookupEnv(name); ok {
		testCtx.savedEnv[name] = &v
	} else {
		testCtx.savedEnv[name] = nil
	}
}

// Path resolves name inside the scenario workspace.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// Cleanup stops the server, restores the environment and removes the
// workspace.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	testCtx.StopServer()

	for name, v := range testCtx.savedEnv {
		if v == nil {
			_ = os.Unsetenv(name)
		} else {
			_ = os.Setenv(name, *v)
		}
	}

	if err := os.Chdir(testCtx.originalDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
