// Package graph models the static job reference graph: one node per job and
// one edge for every step or dependency that invokes another job. It is used
// at validation time to reject configurations whose jobs reference each other
// in a loop, which would otherwise recurse without bound at run time.
package graph
