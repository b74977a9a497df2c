/*
Package dump provides I/O operations for the snapshots of the identity
contracts' states.

Identity contracts keep no state of their own: each execution takes the state
digest and returns the new one. Host tools persist every resulting state as a
snapshot, so that the next action is executed against the latest one and any
previous state can be inspected.

The package works with snapshots stored in the file system using
human-readable encoding.
*/
package dump
