// Package codec turns configuration and data files into generic Go values
// (map[string]any, []any and scalars). The format is chosen by file
// extension: .json, .yaml/.yml, .toml and .hcl are supported.
//
// HCL files are evaluated without variables, so templates meant for the
// job runner must be escaped as $${...} to survive parsing.
package codec
