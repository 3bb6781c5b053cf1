// Package orchestrator declares the named task graph and executes it.
//
// A task is a leaf (one pipeline run, clean, or a long-running service such as
// the dev server), a sequential group whose members run in listed order and
// stop at the first failure, or a parallel group whose members all run to
// completion before their failures are aggregated.
package orchestrator
