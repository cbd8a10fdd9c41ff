// Package render holds the template context passed to every render call
// and the Renderer capability the engine depends on.
//
// The shipped HCLRenderer uses HCL native template syntax:
//
//	echo ${upper(props.name)} run ${iter} on thread ${thread}
//	%{ if iter > 2 }late%{ else }early%{ endif }
//
// Variables: job, config_dir, dir, iter (absent for a single run), thread,
// env and props.
package render
