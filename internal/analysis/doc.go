// Package analysis implements per-scene risk analysis.
//
// Scenes fan out to the model under a bounded concurrency limit and join
// before the stage completes, so one slow scene delays only its own slot.
// Each scene gets its own retry budget; a scene that exhausts it degrades to
// zero findings and is recorded as degraded rather than failing the job.
// Model output is only ever accepted in catalog terms: findings naming
// unknown risk classes are dropped and counted, and severity is always
// recomputed server-side.
package analysis
