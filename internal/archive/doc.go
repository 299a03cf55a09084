// Package archive provides an optional write-only audit trail of job
// lifecycle events. It is never read back by the scheduler; restarts
// always begin with an empty in-memory job store.
package archive
