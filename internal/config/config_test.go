package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("USER", "tester")
	return dir
}

func TestLoad_CreatesDefaults(t *testing.T) {
	base := isolate(t)

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tester", s.Config.Name)
	assert.NotEmpty(t, s.Config.Timezone)
	assert.FileExists(t, filepath.Join(base, "travelcrm", "config.json"))
}

func TestSaveAndReload(t *testing.T) {
	isolate(t)

	s, err := Load()
	require.NoError(t, err)
	s.Config.AgentEmail = "sara@agency.test"
	s.Config.Timezone = "Asia/Dubai"
	require.NoError(t, s.Save())

	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sara@agency.test", again.Config.AgentEmail)
	assert.Equal(t, "Asia/Dubai", again.Config.Timezone)
	assert.Equal(t, s.Path(), again.Path())
}

func TestLoad_RejectsBrokenFile(t *testing.T) {
	base := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "travelcrm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "travelcrm", "config.json"), []byte("{"), 0o644))

	_, err := Load()
	assert.ErrorContains(t, err, "parse config")
}

func TestLocation(t *testing.T) {
	var nilStore *Store
	assert.Equal(t, time.UTC, nilStore.Location())

	s := &Store{Config: Data{Timezone: "Not/AZone"}}
	assert.Equal(t, time.UTC, s.Location())

	s.Config.Timezone = "UTC"
	assert.Equal(t, "UTC", s.Location().String())
}

func TestLoad_FillsMissingFields(t *testing.T) {
	base := isolate(t)
	dir := filepath.Join(base, "travelcrm")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"name":"  ","agentEmail":" sara@agency.test ","timezone":"Asia/Kolkata"}`), 0o644))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tester", s.Config.Name)
	assert.Equal(t, "sara@agency.test", s.Config.AgentEmail)
	assert.Equal(t, "Asia/Kolkata", s.Config.Timezone)
}

func TestSave_LeavesOnlyTheConfigFile(t *testing.T) {
	base := isolate(t)

	s, err := Load()
	require.NoError(t, err)
	s.Config.AgentEmail = "sara@agency.test"
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(filepath.Join(base, "travelcrm"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.json", entries[0].Name())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSave_NilStore(t *testing.T) {
	var s *Store
	assert.Error(t, s.Save())
	assert.Empty(t, s.Path())
}

func TestLoadEnv_Defaults(t *testing.T) {
	isolate(t)
	chdir(t, t.TempDir())

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, env.Backend)
	assert.Equal(t, 1500*time.Millisecond, env.SubscribeDelay)
	assert.Equal(t, 5*time.Second, env.PollInterval)
	assert.Equal(t, "travelcrm", env.MongoDB)
	assert.Equal(t, "info", env.LogLevel)

	path, err := env.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "travelcrm.log", filepath.Base(path))
}

func TestLoadEnv_Overrides(t *testing.T) {
	isolate(t)
	chdir(t, t.TempDir())
	t.Setenv("TRAVELCRM_BACKEND", "mongo")
	t.Setenv("MONGODB_DSN", "mongodb://db:27017")
	t.Setenv("SUBSCRIBE_DELAY", "0s")
	t.Setenv("LOG_FILE", "/tmp/crm.log")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, env.Backend)
	assert.Equal(t, "mongodb://db:27017", env.MongoURI)
	assert.Zero(t, env.SubscribeDelay)
	path, err := env.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/crm.log", path)
}

func TestLoadEnv_DotenvFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("METRICS_ADDR", "")
	os.Unsetenv("METRICS_ADDR")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METRICS_ADDR=:9464\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("METRICS_ADDR") })

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9464", env.MetricsAddr)
}

func TestLoadEnv_InvalidBackend(t *testing.T) {
	isolate(t)
	chdir(t, t.TempDir())
	t.Setenv("TRAVELCRM_BACKEND", "postgres")

	_, err := LoadEnv()
	assert.ErrorContains(t, err, "TRAVELCRM_BACKEND")
}
