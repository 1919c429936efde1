package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/libraryhub/internal/config"
	"github.com/mmcdole/libraryhub/internal/mockapi"
	"github.com/mmcdole/libraryhub/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "libraryhub", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("page"))
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"login", "logout", "mock-server", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	serverFlag := cmd.PersistentFlags().Lookup("server")
	require.NotNil(t, serverFlag)
	assert.Equal(t, "", serverFlag.DefValue)
}

func TestMockServerCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	mockCmd, _, err := cmd.Find([]string{"mock-server"})
	require.NoError(t, err)

	require.NotNil(t, mockCmd.Flags().Lookup("addr"))
	emptyFlag := mockCmd.Flags().Lookup("empty")
	require.NotNil(t, emptyFlag)
	assert.Equal(t, "false", emptyFlag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "libraryhub dev\n", out.String())
}

func TestServerFlagOverridesConfig(t *testing.T) {
	cfgFile := writeConfig(t, "http://from-file:9000")

	cfg, err := loadConfig(&RootOptions{ConfigFile: cfgFile, Server: "http://from-flag:9001"})
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:9001", cfg.Server.URL)

	cfg, err = loadConfig(&RootOptions{ConfigFile: cfgFile})
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:9000", cfg.Server.URL)
}

// === Session commands ===

func newMock(t *testing.T) *httptest.Server {
	t.Helper()
	mock := mockapi.New(mockapi.Config{
		AdminEmail:    "admin@example.com",
		AdminPassword: "pw",
		Token:         "tok",
	}, config.NullLogger())
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a config file that keeps the session and log in a
// temp directory
func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server.URL = serverURL
	cfg.Server.RetryCount = 0
	cfg.Session.Path = filepath.Join(dir, "session.db")
	cfg.Logging.File = filepath.Join(dir, "libraryhub.log")
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(cfg, file))
	return file
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func storedSession(t *testing.T, cfgFile string) (token, email string) {
	t.Helper()
	cfg, err := config.Load(cfgFile)
	require.NoError(t, err)
	store, err := session.Open(cfg.Session.Path)
	require.NoError(t, err)
	defer store.Close()
	return store.Token(), store.Email()
}

func TestLoginStoresToken(t *testing.T) {
	srv := newMock(t)
	cfgFile := writeConfig(t, srv.URL)

	out, err := execute(t, "pw\n", "login", "--config", cfgFile, "--email", "admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as admin@example.com")

	token, email := storedSession(t, cfgFile)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "admin@example.com", email)
}

func TestLoginPromptsForEmail(t *testing.T) {
	srv := newMock(t)
	cfgFile := writeConfig(t, srv.URL)

	out, err := execute(t, "admin@example.com\npw\n", "login", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Email: ")
	assert.Contains(t, out, "Password: ")

	token, _ := storedSession(t, cfgFile)
	assert.Equal(t, "tok", token)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newMock(t)
	cfgFile := writeConfig(t, srv.URL)

	_, err := execute(t, "wrong\n", "login", "--config", cfgFile, "--email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")

	token, _ := storedSession(t, cfgFile)
	assert.Empty(t, token)
}

func TestLoginRequiresPassword(t *testing.T) {
	cfgFile := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute(t, "\n", "login", "--config", cfgFile, "--email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestLogoutClearsToken(t *testing.T) {
	srv := newMock(t)
	cfgFile := writeConfig(t, srv.URL)

	_, err := execute(t, "pw\n", "login", "--config", cfgFile, "--email", "admin@example.com")
	require.NoError(t, err)

	out, err := execute(t, "", "logout", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out admin@example.com")

	token, _ := storedSession(t, cfgFile)
	assert.Empty(t, token)

	out, err = execute(t, "", "logout", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

// === Mock server ===

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mock := mockapi.New(mockapi.Config{AdminEmail: "a@b.c", AdminPassword: "pw", Token: "tok"}, config.NullLogger())
	mock.Seed()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, mock, config.NullLogger())
	}()

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/authors", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestSetupFallsBackToNullLogger(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the log directory should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	cfg := config.DefaultConfig()
	cfg.Session.Path = ""
	cfg.Logging.File = filepath.Join(blocker, "libraryhub.log")
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(cfg, file))

	e, err := setup(&RootOptions{ConfigFile: file})
	require.NoError(t, err)
	defer e.close()
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.client)
}
