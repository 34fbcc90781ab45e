package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T) (configPath, inputPath string) {
	t.Helper()
	dir := t.TempDir()

	dict := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(dict, []byte("he\nshe\nhers\nhe\n敏感\n"), 0o600))

	inputPath = filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("ahershe\nclean line\n这是敏感词\n"), 0o600))

	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
[log]
level = "error"

[filter]
dictionaries = [%q]
`, dict)), 0o600))
	return configPath, inputPath
}

func TestRunMask(t *testing.T) {
	configPath, inputPath := writeFixture(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"mask", "-config", configPath, "-input", inputPath}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "a******\nclean line\n这是**词\n", stdout.String())
}

func TestRunMaskStdin(t *testing.T) {
	configPath, _ := writeFixture(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"mask", "-config", configPath}, strings.NewReader("ushers\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "u*****\n", stdout.String())
}

func TestRunBench(t *testing.T) {
	configPath, inputPath := writeFixture(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"bench", "-config", configPath, "-input", inputPath}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	for _, name := range []string{"naive", "dfa", "aho-corasick"} {
		assert.Contains(t, out, "filter "+name)
	}
	assert.Contains(t, out, "output: a******clean line这是**词")
	assert.Contains(t, out, "all filters agree")
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"explode"}, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "explode"`)
}

func TestRunBenchLongLine(t *testing.T) {
	configPath, _ := writeFixture(t)
	inputPath := filepath.Join(t.TempDir(), "long.txt")
	long := strings.Repeat("x", 3<<19) + "she\r\n" + "tail\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(long), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"bench", "-config", configPath, "-input", inputPath}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "all filters agree")
	assert.NotContains(t, stderr.String(), "dictionary")
}

func TestRunServeMissingDictionary(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
[log]
level = "error"

[cache]
enabled = true

[filter]
dictionaries = ["/nonexistent/key.txt"]
`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"serve", "-config", configPath}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "serve:")
}
