package codec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	t.Parallel()

	testCases := map[string]Format{
		"a.json":    JSON,
		"a.yaml":    YAML,
		"dir/a.YML": YAML,
		"a.toml":    TOML,
		"jobs.hcl":  HCL,
	}
	for path, want := range testCases {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("a.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_JSONKeepsIntegers(t *testing.T) {
	t.Parallel()

	v, err := Decode(JSON, []byte(`{"n": 9007199254740993, "list": [1, "a"]}`), "x.json")

	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), m["n"])
	assert.Equal(t, []any{json.Number("1"), "a"}, m["list"])
}

func TestDecode_JSONRejectsTrailingData(t *testing.T) {
	t.Parallel()

	_, err := Decode(JSON, []byte(`[1] [2]`), "x.json")
	assert.ErrorContains(t, err, "unexpected data")
}

func TestDecode_YAML(t *testing.T) {
	t.Parallel()

	v, err := Decode(YAML, []byte("jobs:\n  - name: a\n    steps: [echo hi]\n    iters: {to: 3}\n"), "x.yaml")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"jobs": []any{map[string]any{
			"name":  "a",
			"steps": []any{"echo hi"},
			"iters": map[string]any{"to": 3},
		}},
	}, v)
}

func TestDecode_YAMLNonStringKeys(t *testing.T) {
	t.Parallel()

	v, err := Decode(YAML, []byte("props:\n  1: one\n"), "x.yaml")

	require.NoError(t, err)
	props := v.(map[string]any)["props"]
	assert.Equal(t, map[string]any{"1": "one"}, props)
}

func TestDecode_TOMLArrayOfTables(t *testing.T) {
	t.Parallel()

	src := `
dotenv = true

[[jobs]]
name = "a"
steps = ["echo a"]

[[jobs]]
name = "b"
iters = { to = 2 }
`
	v, err := Decode(TOML, []byte(src), "x.toml")

	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, true, m["dotenv"])
	jobs, ok := m["jobs"].([]any)
	require.True(t, ok, "array of tables should become []any")
	require.Len(t, jobs, 2)
	assert.Equal(t, map[string]any{"to": int64(2)}, jobs[1].(map[string]any)["iters"])
}

func TestDecode_HCL(t *testing.T) {
	t.Parallel()

	src := `
dotenv = false
env = { REGION = "eu" }

job "build" {
  steps = ["make $${iter}"]
  iters = { from = 1, to = 4 }
  parallel = 2
}

job "lint" {
  steps = ["golint"]
  ignore_errors = true
}
`
	v, err := Decode(HCL, []byte(src), "x.hcl")

	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, false, m["dotenv"])
	assert.Equal(t, map[string]any{"REGION": "eu"}, m["env"])
	assert.Equal(t, []any{
		map[string]any{
			"name":     "build",
			"steps":    []any{"make ${iter}"},
			"iters":    map[string]any{"from": int64(1), "to": int64(4)},
			"parallel": int64(2),
		},
		map[string]any{
			"name":          "lint",
			"steps":         []any{"golint"},
			"ignore_errors": true,
		},
	}, m["jobs"])
}

func TestDecode_HCLErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"syntax":            `job "a" {`,
		"unknown block":     `task "a" {}`,
		"missing label":     `job {}`,
		"nested block":      "job \"a\" {\n  inner {}\n}",
		"unescaped var":     `job "a" { steps = ["echo ${iter}"] }`,
		"name attribute":    `job "a" { name = "b" }`,
		"jobs in two forms": "jobs = []\njob \"a\" {}",
	}
	for name, src := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(HCL, []byte(src), "x.hcl")
			assert.Error(t, err)
		})
	}
}

func TestFileLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	v, err := FileLoader{}.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	_, err = FileLoader{}.LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read")
}
