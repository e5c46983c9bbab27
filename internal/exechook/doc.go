// Package exechook decides how the embedded service runs external commands.
//
// The embedded service never calls os/exec itself. It receives a *Registry
// (an Executor) in its configuration and sends every command through it:
//
//	embedded service -> Registry.Exec -> installed hook   (sandboxed platforms)
//	                                 \-> Spawn            (everywhere else)
//
// Invariants:
//   - At most one hook per Registry, installed once and never replaced.
//   - The hook is installed before the embedded service is started, so the
//     service never sees the fallback on a platform that requires the hook.
//   - Exec never returns an error: failures are an exit code plus output.
package exechook
