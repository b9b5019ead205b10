package command

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-travel-rates/config"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const latestRates = `{
	"result": "success",
	"base_code": "USD",
	"time_last_update_unix": 1700000000,
	"rates": {"USD": 1, "EUR": 0.9, "INR": 83}
}`

// isolate keeps a user config out of the test
func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvConfig, "")
	return dir
}

func newProvider(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	app := InitApp(&stdout, strings.NewReader(stdin), &stderr)
	err := app.Run(context.Background(), append([]string{"travelrates"}, args...))
	return stdout.String(), err
}

func TestConvert_FetchesStaleRates(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "rates.db")
	server, calls := newProvider(t, http.StatusOK, latestRates)

	out, err := run(t, "", "--db", db, "--provider-url", server.URL, "convert", "USD", "100")
	require.NoError(t, err)

	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "90.00")
	assert.Contains(t, out, "8300.00")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// fresh table is read from the database without contacting the provider
	out, err = run(t, "", "--db", db, "--provider-url", server.URL, "convert", "EUR", "9")
	require.NoError(t, err)

	assert.Contains(t, out, "10.00")
	assert.Contains(t, out, "830.00")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestConvert_To(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "rates.db")
	server, _ := newProvider(t, http.StatusOK, latestRates)

	out, err := run(t, "", "--db", db, "--provider-url", server.URL, "convert", "--to", "inr", "EUR", "9")
	require.NoError(t, err)

	assert.Contains(t, out, "9.00 EUR = 830.00 INR")
}

func TestConvert_OfflineWithoutRates(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "--ephemeral", "--offline", "convert", "--to", "EUR", "USD", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "10.00 USD = 10.00 EUR (rate 1)")
}

func TestConvert_MissingCode(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "--ephemeral", "--offline", "convert")

	assert.Error(t, err)
}

func TestPin_PersistsAcrossRuns(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "rates.db")

	out, err := run(t, "", "--db", db, "--offline", "pin", "gbp")
	require.NoError(t, err)
	assert.Contains(t, out, "Pinned: USD EUR INR GBP")

	out, err = run(t, "", "--db", db, "--offline", "unpin", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "Pinned: USD INR GBP")

	out, err = run(t, "", "--db", db, "--offline", "convert", "USD", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "GBP")
	assert.NotContains(t, out, "EUR")
}

func TestOverride_SetListReset(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "rates.db")

	out, err := run(t, "", "--db", db, "--offline", "override", "set", "eur", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "EUR now uses 0.5")

	out, err = run(t, "", "--db", db, "--offline", "override", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "EUR")
	assert.Contains(t, out, "0.5")

	out, err = run(t, "", "--db", db, "--offline", "convert", "USD", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "5.00")

	out, err = run(t, "", "--db", db, "--offline", "override", "reset", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "EUR now uses 1")

	out, err = run(t, "", "--db", db, "--offline", "override", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No custom rates.")
}

func TestOverride_InvalidRateBecomesOne(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "--ephemeral", "--offline", "override", "set", "EUR", "abc")
	require.NoError(t, err)

	assert.Contains(t, out, "EUR now uses 1")
}

func TestRates_ShowsFetchedAndOverride(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "rates.db")
	server, _ := newProvider(t, http.StatusOK, latestRates)

	_, err := run(t, "", "--db", db, "--provider-url", server.URL, "refresh")
	require.NoError(t, err)
	_, err = run(t, "", "--db", db, "--offline", "override", "set", "INR", "80")
	require.NoError(t, err)

	out, err := run(t, "", "--db", db, "--offline", "rates")
	require.NoError(t, err)

	assert.Contains(t, out, "Rates for 3 currencies")
	assert.Contains(t, out, "0.9")
	assert.Contains(t, out, "83")
	assert.Contains(t, out, "80")
}

func TestRefresh(t *testing.T) {
	t.Run("offline", func(t *testing.T) {
		isolate(t)

		out, err := run(t, "", "--ephemeral", "--offline", "refresh")
		require.NoError(t, err)

		assert.Contains(t, out, "Refresh is disabled while offline.")
		assert.Contains(t, out, "No rates cached")
	})

	t.Run("provider failure", func(t *testing.T) {
		isolate(t)
		server, _ := newProvider(t, http.StatusInternalServerError, "")

		out, err := run(t, "", "--ephemeral", "--provider-url", server.URL, "refresh")
		require.NoError(t, err)

		assert.Contains(t, out, "Refresh failed, keeping cached rates.")
		assert.Contains(t, out, "last refresh failed")
	})

	t.Run("success", func(t *testing.T) {
		isolate(t)
		server, _ := newProvider(t, http.StatusOK, latestRates)

		out, err := run(t, "", "--ephemeral", "--provider-url", server.URL, "refresh")
		require.NoError(t, err)

		assert.Contains(t, out, "Rates refreshed.")
		assert.Contains(t, out, "Rates for 3 currencies")
	})
}

func TestSession_Scripted(t *testing.T) {
	isolate(t)

	script := strings.Join([]string{
		"help",
		"pin GBP",
		"override EUR 2",
		"EUR 4",
		"refresh",
		"status",
		"quit",
		"USD 99999",
	}, "\n")

	out, err := run(t, script, "--ephemeral", "--offline", "session")
	require.NoError(t, err)

	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "GBP")
	assert.Contains(t, out, "EUR now uses 2")
	assert.Contains(t, out, "4.00")
	assert.Contains(t, out, "2.00")
	assert.Contains(t, out, "Refresh is disabled while offline.")
	assert.Contains(t, out, "No rates cached")
	assert.NotContains(t, out, "99999")
}

func TestSession_EndsAtEOF(t *testing.T) {
	isolate(t)

	out, err := run(t, "USD 3\n", "--ephemeral", "--offline", "session")
	require.NoError(t, err)

	assert.Contains(t, out, "3.00")
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv(config.EnvConfig, filepath.Join(dir, "absent.yaml"))

		out, err := run(t, "", "--ephemeral", "--offline", "convert", "USD", "2")
		require.NoError(t, err)

		assert.Contains(t, out, "2.00")
	})

	t.Run("file is read", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "travelrates.yaml")
		require.NoError(t, os.WriteFile(path, []byte("connectivity:\n  offline: true\n"), 0o644))
		t.Setenv(config.EnvConfig, path)

		out, err := run(t, "", "--ephemeral", "refresh")
		require.NoError(t, err)

		assert.Contains(t, out, "Refresh is disabled while offline.")
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		dir := isolate(t)

		_, err := run(t, "", "--config", filepath.Join(dir, "absent.yaml"), "--ephemeral", "--offline", "rates")

		assert.Error(t, err)
	})
}
