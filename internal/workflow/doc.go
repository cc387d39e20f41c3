// Package workflow drives jobs through the processing pipeline.
//
// A fixed worker pool polls the queue for jobs at a stage boundary and runs
// the matching stage handler. Every status move is a conditional update, so
// workers never fight over a job and a concurrent cancellation always wins.
// While a stage executes, a heartbeat loop keeps the job's claim fresh;
// a maintenance loop rolls jobs with stale heartbeats back to the start of
// the stage they died in.
package workflow
