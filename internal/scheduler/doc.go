// Package scheduler implements the in-process job scheduler core:
//   - Store: job records behind a single mutex (the synchronization boundary)
//   - Queue: FIFO of job ids with a timed, cooperative Pop
//   - worker pool: claim → handle → complete, fail-open on handler faults
//   - stuck-task monitor: requeues jobs stuck in "processing" past the timeout
//
// The handler that turns a payload into a result is injected (see Handler);
// the scheduler itself never inspects payloads.
package scheduler
