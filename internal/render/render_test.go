package render

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/specialistvlad/jobgrid/internal/codec"
	"github.com/specialistvlad/jobgrid/internal/iteration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	return &Context{
		Job:       "build",
		ConfigDir: "/cfg",
		Dir:       "/cfg/work",
		Thread:    2,
		Env:       map[string]string{"STAGE": "dev"},
		Props: map[string]any{
			"name":  "api",
			"ports": []any{json.Number("80"), int64(443)},
			"meta":  map[string]any{"owner": "ops"},
		},
	}
}

func TestHCLRenderer_Variables(t *testing.T) {
	t.Parallel()

	r := NewHCLRenderer()
	ctx := testContext()
	ctx.SetIteration(iteration.Item{Value: int64(7), HasValue: true})

	testCases := map[string]string{
		"plain text":                                  "plain text",
		"${job} in ${dir}":                            "build in /cfg/work",
		"cfg=${config_dir}":                           "cfg=/cfg",
		"${iter}":                                     "7",
		"t${thread}":                                  "t2",
		"${env.STAGE}":                                "dev",
		"${props.name}-${props.meta.owner}":           "api-ops",
		"${props.ports[0]}/${props.ports[1]}":         "80/443",
		"${upper(props.name)}":                        "API",
		`${join(",", props.ports)}`:                   "80,443",
		"%{ if iter > 5 }big%{ else }small%{ endif }": "big",
		`${format("%03d", iter)}`:                     "007",
		"$${literal}":                                 "${literal}",
	}

	for tmpl, want := range testCases {
		got, err := r.Render(tmpl, ctx)
		require.NoError(t, err, tmpl)
		assert.Equal(t, want, got, tmpl)
	}
}

func TestHCLRenderer_SingleRunHasNoIter(t *testing.T) {
	t.Parallel()

	r := NewHCLRenderer()
	ctx := testContext()
	ctx.SetIteration(iteration.Item{})

	_, err := r.Render("echo ${iter}", ctx)

	var renderErr *Error
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "echo ${iter}", renderErr.Template)
	assert.Contains(t, err.Error(), "iter")
}

func TestHCLRenderer_Errors(t *testing.T) {
	t.Parallel()

	r := NewHCLRenderer()

	for _, tmpl := range []string{"${", "${nope}", "${props}", "${unknown_fn(1)}"} {
		_, err := r.Render(tmpl, testContext())
		var renderErr *Error
		assert.ErrorAs(t, err, &renderErr, tmpl)
	}
}

func TestHCLRenderer_ConcurrentUse(t *testing.T) {
	t.Parallel()

	r := NewHCLRenderer()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := testContext()
			ctx.Thread = i
			got, err := r.Render("worker ${thread}", ctx)
			assert.NoError(t, err)
			assert.Equal(t, "worker "+strconv.Itoa(i), got)
		}()
	}
	wg.Wait()
}

func TestContext_Clone(t *testing.T) {
	t.Parallel()

	orig := testContext()
	clone := orig.Clone()
	clone.Env["NEW"] = "1"
	clone.Props["name"] = "changed"
	clone.Thread = 9

	assert.NotContains(t, orig.Env, "NEW")
	assert.Equal(t, "api", orig.Props["name"])
	assert.Equal(t, 2, orig.Thread)

	empty := (&Context{}).Clone()
	assert.NotNil(t, empty.Env)
	assert.NotNil(t, empty.Props)
}

func TestContext_Variables(t *testing.T) {
	t.Parallel()

	ctx := testContext()
	assert.NotContains(t, ctx.Variables(), "iter")

	ctx.SetIteration(iteration.Item{Value: "a", HasValue: true})
	assert.Equal(t, "a", ctx.Variables()["iter"])
}

func TestToCty(t *testing.T) {
	t.Parallel()

	_, err := ToCty(struct{}{})
	assert.ErrorContains(t, err, "unsupported value type")

	v, err := ToCty(map[string]any{"a": []any{}, "b": map[string]any{}, "c": nil})
	require.NoError(t, err)
	assert.True(t, v.Type().IsObjectType())
}

func TestHCLRenderer_TOMLDates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	raw, err := codec.Decode(codec.TOML, []byte("released = 1979-05-27T07:32:00Z\n"), "props.toml")
	require.NoError(t, err)
	ctx := &Context{Job: "job", Props: raw.(map[string]any)}

	// --- Act ---
	out, err := NewHCLRenderer().Render("released ${props.released}", ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "released 1979-05-27T07:32:00Z", out)
}
