package render

import "fmt"

// Renderer turns a template into text using the variables of a Context.
type Renderer interface {
	Render(template string, ctx *Context) (string, error)
}

// Error is a template that failed to parse or evaluate.
type Error struct {
	Template string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to render template %q: %v", e.Template, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
