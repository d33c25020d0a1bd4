// Package work implements the time-ordered task scheduler that paces execution orders.
//
// # Model
//
// A Task is a unit of work with a "run at or after At" contract. All tasks live in a
// single queue ordered by At (ties broken by submission order). The scheduler never
// runs a task before its time; it may run it later if the process is busy.
//
// # Pacing
//
// An order never enqueues more than one of its own steps at a time: each step schedules
// its successor only after it has finished. Steps of the same order are therefore
// strictly serialised, while steps of different orders run concurrently under Run.
//
// # Clocks
//
// Time is read through a Clock. SystemClock is used in production; ManualClock gives
// tests a virtual timeline that only moves when Advance is called. RunDue executes due
// tasks synchronously, which makes pacing behaviour deterministic under a ManualClock.
package work
