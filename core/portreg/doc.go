// Package portreg tracks which local process claimed which engine REST port.
//
// Establishing a session may launch an engine process; two bridge processes
// racing for the same port would otherwise both launch one. The registry is
// a small sqlite database in the user cache directory whose file locking
// serializes claims across processes. Reservations of dead processes are
// treated as stale and replaced.
package portreg
