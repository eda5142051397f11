// Package diagnostics implements the health checks behind :LivePreviewHealth.
//
// The package is built around four pieces:
//
//   - Lister: enumerates OS processes holding a listening TCP socket on the
//     configured preview port.
//
//   - Classify: marks each listener as owned by this host process or foreign,
//     by PID comparison.
//
//   - Verdicts: turns classified listeners plus the logical server state into
//     health verdicts (healthy, not running, port stolen, unknown).
//
//   - Doctor: sequences version, shell, picker, port and config checks into a
//     single ordered report. Checks are isolated; one failure never prevents
//     the remaining checks from running.
//
// All collaborators (server state, host environment, listener source) are
// injected at construction. A diagnostic run owns every record it produces
// and nothing survives across runs.
package diagnostics
