// Package gitexec runs git commands through the system binary. Commands
// carry a per-call timeout and capped output; failures are classified into
// sentinel errors callers can branch on with errors.Is.
package gitexec
