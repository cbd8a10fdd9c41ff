// Package engine executes jobs. It owns the step executor that spawns
// shell commands, the completion tracker that enforces run-once
// semantics, and the orchestrator that runs dependencies and drives the
// iteration loop, either sequentially or on a pool of workers.
//
// A job moves through these states, each logged by name:
//
//	NotStarted -> GateCheck -> Skipped
//	NotStarted -> GateCheck -> RunningDependencies -> RunningIterations -> Attempted
//
// Failed is reached from RunningDependencies or RunningIterations and is
// always followed by Attempted, which sets the job's completion flag.
//
// Jobs reference each other recursively in-process. Reference loops are
// rejected when the configuration is validated; the engine itself has no
// recursion guard.
package engine
