package scheduler

import "context"

// Handler turns a job payload into a result. It is the pluggable boundary
// between the scheduler and whatever actually does the work; payloads and
// results are opaque here.
//
// Contract:
//   - Ordinary failures must be encoded into the returned result map
//     (e.g. {"error": "..."}); the job is then completed normally.
//   - A non-nil error (or a panic) is treated as an unrecoverable fault:
//     the worker logs it and abandons the job in "processing" so the
//     monitor requeues it after the retry timeout. It never fabricates a
//     completed job out of a crashed handler.
//   - The call may take unbounded time and may have arbitrary side effects.
//     The scheduler does not enforce a deadline and does not cancel the
//     context on Stop; stuck handlers are recovered via the monitor.
type Handler func(ctx context.Context, payload map[string]any) (map[string]any, error)
