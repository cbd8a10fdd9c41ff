package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/specialistvlad/jobgrid/internal/fsutil"
)

var (
	configKeys = []string{"env", "dotenv", "props", "props_file", "log", "jobs"}
	jobKeys    = []string{
		"name", "dir", "env", "props", "props_file", "steps", "iters", "depends",
		"templates", "parallel", "ignore_errors", "log", "when", "message",
	}
	jobRefKeys = []string{"job", "props", "env"}
	rangeKeys  = []string{"from", "to", "by"}
)

// Decode builds a Config from the generic value tree produced by a codec.
// Every shape problem found is reported; the returned error joins them.
// path is the source file and anchors relative paths.
func Decode(raw any, path string) (*Config, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &ConfigError{Err: fmt.Errorf("%w: top level must be a map, got %s", ErrInvalidShape, kindOf(raw))}
	}

	cfg := &Config{Path: path, Dir: filepath.Dir(path)}
	d := &decoder{dir: cfg.Dir}

	d.unknownKeys("", "configuration", root, configKeys)
	cfg.Env = d.stringMap("", "env", root["env"])
	cfg.Dotenv = d.boolean("", "dotenv", root["dotenv"])
	cfg.Props = d.props("", "props", root["props"])
	cfg.PropsFile = fsutil.Resolve(d.dir, d.str("", "props_file", root["props_file"]))
	cfg.Log = d.log("", root["log"])

	switch jobs := root["jobs"].(type) {
	case nil:
	case []any:
		for i, item := range jobs {
			if j := d.job(i, item); j != nil {
				cfg.Jobs = append(cfg.Jobs, j)
			}
		}
	default:
		d.fail("", "jobs must be a list, got %s", kindOf(jobs))
	}

	if err := d.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type decoder struct {
	dir  string
	errs []error
}

func (d *decoder) fail(job, format string, args ...any) {
	d.errs = append(d.errs, jobErr(job, ErrInvalidShape, format, args...))
}

func (d *decoder) err() error {
	return errors.Join(d.errs...)
}

func (d *decoder) unknownKeys(job, what string, m map[string]any, allowed []string) {
	var unknown []string
	for k := range m {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		d.fail(job, "unknown key %q in %s", k, what)
	}
}

func (d *decoder) job(index int, raw any) *Job {
	m, ok := raw.(map[string]any)
	if !ok {
		d.fail("", "job #%d must be a map, got %s", index, kindOf(raw))
		return nil
	}

	name, ok := m["name"].(string)
	if !ok || name == "" {
		d.fail("", "job #%d has no name", index)
		return nil
	}

	d.unknownKeys(name, "job", m, jobKeys)
	j := &Job{
		Name:         name,
		Dir:          d.str(name, "dir", m["dir"]),
		Env:          d.stringMap(name, "env", m["env"]),
		Props:        d.props(name, "props", m["props"]),
		PropsFile:    fsutil.Resolve(d.dir, d.str(name, "props_file", m["props_file"])),
		Steps:        d.steps(name, "steps", m["steps"]),
		Iters:        d.iteration(name, m["iters"]),
		Depends:      d.steps(name, "depends", m["depends"]),
		Templates:    d.strings(name, "templates", m["templates"]),
		Parallel:     d.parallel(name, m["parallel"]),
		IgnoreErrors: d.boolean(name, "ignore_errors", m["ignore_errors"]),
		Log:          d.log(name, m["log"]),
		When:         d.strings(name, "when", m["when"]),
		Message:      d.str(name, "message", m["message"]),
	}
	return j
}

// steps decodes a step list: a string is a Command, a map with "job" is a
// JobRef. A lone string or map is accepted as a one-element list.
func (d *decoder) steps(job, field string, raw any) []Step {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		items = v
	default:
		items = []any{v}
	}

	steps := make([]Step, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			steps = append(steps, Command{Template: v})
		case map[string]any:
			target, ok := v["job"].(string)
			if !ok || target == "" {
				d.fail(job, "%s[%d]: a job reference needs a string \"job\" key", field, i)
				continue
			}
			d.unknownKeys(job, fmt.Sprintf("%s[%d]", field, i), v, jobRefKeys)
			steps = append(steps, JobRef{
				Target: target,
				Props:  d.props(job, field+".props", v["props"]),
				Env:    d.stringMap(job, field+".env", v["env"]),
			})
		default:
			d.fail(job, "%s[%d]: expected a command string or a job reference, got %s", field, i, kindOf(item))
		}
	}
	return steps
}

// iteration decodes iters by kind: false or absent is SingleRun, true is
// InfiniteLoop, a string is an ExternalFile, a list is a ValueList and a map
// with "to" is a Range.
func (d *decoder) iteration(job string, raw any) Iteration {
	switch v := raw.(type) {
	case nil:
		return SingleRun{}
	case bool:
		if v {
			return InfiniteLoop{}
		}
		return SingleRun{}
	case string:
		return ExternalFile{Path: fsutil.Resolve(d.dir, v)}
	case []any:
		return ValueList{Values: v}
	case map[string]any:
		if _, ok := v["to"]; !ok {
			d.fail(job, "iters: a range needs a \"to\" key")
			return SingleRun{}
		}
		d.unknownKeys(job, "iters", v, rangeKeys)

		var r Range
		to, err := toInt64(v["to"])
		if err != nil {
			d.errs = append(d.errs, jobErr(job, ErrMalformedRange, "to: %v", err))
		}
		r.To = to
		for _, bound := range []struct {
			key string
			dst **int64
		}{{"from", &r.From}, {"by", &r.By}} {
			val, ok := v[bound.key]
			if !ok || val == nil {
				continue
			}
			n, err := toInt64(val)
			if err != nil {
				d.errs = append(d.errs, jobErr(job, ErrMalformedRange, "%s: %v", bound.key, err))
				continue
			}
			*bound.dst = &n
		}
		return r
	default:
		d.fail(job, "iters: unsupported value of kind %s", kindOf(raw))
		return SingleRun{}
	}
}

func (d *decoder) log(job string, raw any) LogOutput {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return ToStdout{Enabled: v}
	case string:
		return FilePath{Template: v}
	default:
		d.fail(job, "log: expected a bool or a path, got %s", kindOf(raw))
		return nil
	}
}

func (d *decoder) parallel(job string, raw any) ExecutionType {
	switch v := raw.(type) {
	case nil:
		return Parallel(false)
	case bool:
		return Parallel(v)
	default:
		n, err := toInt64(raw)
		if err != nil {
			d.fail(job, "parallel: expected a bool or an integer, got %s", kindOf(raw))
			return Parallel(false)
		}
		if n < 1 {
			d.fail(job, "parallel: thread count must be at least 1, got %d", n)
			return Parallel(false)
		}
		return WithThreads(n)
	}
}

func (d *decoder) str(job, field string, raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		d.fail(job, "%s: expected a string, got %s", field, kindOf(raw))
		return ""
	}
}

func (d *decoder) boolean(job, field string, raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		d.fail(job, "%s: expected a bool, got %s", field, kindOf(raw))
		return false
	}
}

func (d *decoder) strings(job, field string, raw any) []string {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		items = v
	default:
		d.fail(job, "%s: expected a list of strings, got %s", field, kindOf(raw))
		return nil
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			d.fail(job, "%s[%d]: expected a string, got %s", field, i, kindOf(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) props(job, field string, raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	default:
		d.fail(job, "%s: expected a map, got %s", field, kindOf(raw))
		return nil
	}
}

// stringMap decodes an environment map. Scalar values are formatted as
// strings; nested values are rejected.
func (d *decoder) stringMap(job, field string, raw any) map[string]string {
	if raw == nil {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		d.fail(job, "%s: expected a map, got %s", field, kindOf(raw))
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := scalarString(v)
		if !ok {
			d.fail(job, "%s.%s: expected a scalar, got %s", field, k, kindOf(v))
			continue
		}
		out[k] = s
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	case int, int64, uint64, float64:
		return fmt.Sprint(x), true
	default:
		return "", false
	}
}

// toInt64 accepts every integer representation the codecs produce. Floats
// are accepted only when they hold an integral value.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || x > math.MaxInt64 || x < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", kindOf(v))
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, uint64, float64, json.Number:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
