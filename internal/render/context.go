package render

import (
	"maps"

	"github.com/specialistvlad/jobgrid/internal/iteration"
)

// Context is the variable set available to one render call.
type Context struct {
	Job       string
	ConfigDir string
	// Dir is the resolved working directory, empty when inherited.
	Dir string
	// Iter is the current iteration value; meaningful only when HasIter.
	Iter    any
	HasIter bool
	// Thread is the worker index, 0 for sequential execution.
	Thread int
	Env    map[string]string
	Props  map[string]any
}

// Clone returns a copy whose maps can be modified independently. Nested
// prop values are shared.
func (c *Context) Clone() *Context {
	out := *c
	out.Env = maps.Clone(c.Env)
	out.Props = maps.Clone(c.Props)
	if out.Env == nil {
		out.Env = map[string]string{}
	}
	if out.Props == nil {
		out.Props = map[string]any{}
	}
	return &out
}

// SetIteration exposes item as the iteration value.
func (c *Context) SetIteration(item iteration.Item) {
	c.Iter, c.HasIter = item.Value, item.HasValue
}

// Variables returns the context as template variables.
func (c *Context) Variables() map[string]any {
	vars := map[string]any{
		"job":        c.Job,
		"config_dir": c.ConfigDir,
		"dir":        c.Dir,
		"thread":     int64(c.Thread),
		"env":        c.Env,
		"props":      c.Props,
	}
	if c.HasIter {
		vars["iter"] = c.Iter
	}
	return vars
}
