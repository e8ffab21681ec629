// Package session establishes and tears down connections to the engine's
// REST service.
//
// Establish first probes the configured host and port. A ready engine is
// adopted as-is; otherwise, if the configuration points at a local install,
// the engine process is launched and polled until its API answers. Sessions
// remember whether they own the process, and Release only ever terminates
// owned processes.
package session
