package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTOML(t *testing.T, content string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return Decode(v)
}

func TestDecodeDefaults(t *testing.T) {
	conf, err := decodeTOML(t, `
[filter]
dictionaries = ["key.txt"]
`)
	require.NoError(t, err)

	assert.Equal(t, "aho-corasick", conf.Filter.Algorithm)
	assert.Equal(t, '*', conf.Filter.MaskRune())
	assert.Equal(t, ":8080", conf.Server.HTTP.Addr)
	assert.Equal(t, 5*time.Second, conf.Server.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Minute, conf.Cache.TTL)
	assert.Equal(t, []string{"key.txt"}, conf.Filter.Dictionaries)
}

func TestDecodeOverrides(t *testing.T) {
	conf, err := decodeTOML(t, `
version = "1.2.0"

[log]
level = "debug"

[server.http]
addr = ":9090"
read_timeout = "2s"

[filter]
algorithm = "dfa"
dictionaries = ["a.txt", "b.txt"]
mask = "#"
max_batch_size = 10
`)
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", conf.Version)
	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, ":9090", conf.Server.HTTP.Addr)
	assert.Equal(t, 2*time.Second, conf.Server.HTTP.ReadTimeout)
	assert.Equal(t, "dfa", conf.Filter.Algorithm)
	assert.Equal(t, '#', conf.Filter.MaskRune())
	assert.Equal(t, 10, conf.Filter.MaxBatchSize)

	lc := conf.LoggingConfig("http")
	assert.Equal(t, "wordmask", lc.Service)
	assert.Equal(t, "http", lc.Module)
	assert.Equal(t, "debug", lc.Level)
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing dictionaries", `[filter]
algorithm = "naive"`},
		{"unknown algorithm", `[filter]
algorithm = "regex"
dictionaries = ["k.txt"]`},
		{"bad log level", `[log]
level = "trace"
[filter]
dictionaries = ["k.txt"]`},
		{"tracing without endpoint", `[tracing]
enabled = true
[filter]
dictionaries = ["k.txt"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeTOML(t, tt.content)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[filter]
dictionaries = ["words.txt"]
`), 0o600))

	t.Setenv("APP_FILTER_ALGORITHM", "naive")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "naive", conf.Filter.Algorithm)
	assert.Same(t, vInstance, GetViper())
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"Token": "abc",
		"Nested": map[string]any{
			"Password": "p",
			"Addr":     ":8080",
		},
	}
	mask(m)

	assert.Equal(t, "******", m["Token"])
	nested := m["Nested"].(map[string]any)
	assert.Equal(t, "******", nested["Password"])
	assert.Equal(t, ":8080", nested["Addr"])
}

func TestRunReloadHooks(t *testing.T) {
	hooksMu.Lock()
	saved := onReload
	onReload = nil
	hooksMu.Unlock()
	t.Cleanup(func() {
		hooksMu.Lock()
		onReload = saved
		hooksMu.Unlock()
	})

	var got []string
	RegisterReloadHook(nil)
	RegisterReloadHook(func(c *Config) {
		got = append(got, "first:"+c.Filter.Algorithm)
		// hook 内注册不会死锁，新 hook 从下一次重载开始生效
		RegisterReloadHook(func(c *Config) { got = append(got, "late:"+c.Filter.Algorithm) })
	})
	RegisterReloadHook(func(c *Config) { got = append(got, "second:"+c.Filter.Algorithm) })

	runReloadHooks(&Config{Filter: FilterConfig{Algorithm: "dfa"}})
	assert.Equal(t, []string{"first:dfa", "second:dfa"}, got)

	got = nil
	runReloadHooks(&Config{Filter: FilterConfig{Algorithm: "naive"}})
	assert.Equal(t, []string{"first:naive", "second:naive", "late:naive"}, got)
}
