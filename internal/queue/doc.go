// Package queue persists safety-check jobs and their reports in SQLite and
// exposes the lifecycle operations the workflow manager drives.
//
// Jobs move through fine-grained internal statuses so a restarted daemon can
// resume mid-pipeline; callers only ever see the coarse public status. All
// status transitions are conditional single-statement updates, so a
// cancellation racing a worker resolves inside SQLite rather than in Go.
// Report retrieval is one-shot: the first successful take wins and every
// later attempt reports the record as gone.
//
// The database holds job control state and finished reports only. Script
// content never touches it; stages pass opaque buffer keys instead.
package queue
