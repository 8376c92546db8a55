// Package preflight provides readiness checks for the directories and
// services polyglot depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check so a
//     misconfigured install is visible before the first batch runs.
//   - The CLI "polyglot status" and "polyglot test-llm" commands use the
//     individual check functions to display health when the daemon is offline.
//
// RunAll never calls remote services; CheckLLM does.
package preflight
