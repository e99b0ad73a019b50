package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusgate/internal/focus"
)

func TestOverallStatus(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("ok", true, func(context.Context) CheckResult { return CheckResult{Status: StatusHealthy} })
	c.RegisterFunc("meh", false, func(context.Context) CheckResult { return CheckResult{Status: StatusUnhealthy} })

	assert.Equal(t, StatusUnknown, c.OverallStatus())

	c.Check(context.Background())
	assert.Equal(t, StatusDegraded, c.OverallStatus())

	c.RegisterFunc("bad", true, func(context.Context) CheckResult { return CheckResult{Status: StatusUnhealthy} })
	c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, c.OverallStatus())
}

func TestCheckRecoversPanicAndTimeout(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("panics", false, func(context.Context) CheckResult { panic("boom") })
	c.Register(&Component{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["panics"].Status)
	assert.Equal(t, "boom", results["panics"].Error)
	assert.Equal(t, "check timed out", results["slow"].Message)
}

func TestFocusBackendCheck(t *testing.T) {
	src := focus.NewStaticSource(100)

	res := FocusBackendCheck(src, 100)(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, true, res.Details["is_self"])

	src.SetPID(200)
	res = FocusBackendCheck(src, 100)(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, false, res.Details["is_self"])

	src.Fail(focus.ErrNoForeground)
	assert.Equal(t, StatusDegraded, FocusBackendCheck(src, 100)(context.Background()).Status)

	src.Fail(errors.New("xprop: not found"))
	res = FocusBackendCheck(src, 100)(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "xprop")
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, StatusHealthy, ConfigCheck(filepath.Join(dir, "none.toml"))(context.Background()).Status)

	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[logging]\nlevel = \"debug\"\n"), 0600))
	assert.Equal(t, StatusHealthy, ConfigCheck(good)(context.Background()).Status)

	typo := filepath.Join(dir, "typo.toml")
	require.NoError(t, os.WriteFile(typo, []byte("[logging]\nlevle = \"debug\"\n"), 0600))
	res := ConfigCheck(typo)(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "config does not match schema", res.Message)

	warn := filepath.Join(dir, "warn.toml")
	require.NoError(t, os.WriteFile(warn, []byte("[menu]\ndiscard_text = []\ndiscard_ids = []\n"), 0600))
	assert.Equal(t, StatusDegraded, ConfigCheck(warn)(context.Background()).Status)
}

func TestWritableDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	res := WritableDirCheck(dir)(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHealthHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("journal", true, JournalCheck(func(context.Context) error { return errors.New("disk full") }))
	c.SetReady(true)

	rec := httptest.NewRecorder()
	c.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz?full=true", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "disk full", resp.Components["journal"].Error)

	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
