// Package scheduler runs device timers.
//
// A timer is either daily (fires at the same wall-clock on/off time every
// day, in the site timezone) or one-shot (fires once inside a one-minute
// window and is then removed). Each device with an active timer gets its
// own poll loop; loops evaluate every few seconds, with last-fired guards
// so a minute spanning several polls fires exactly once.
//
// Timers are persisted in SQLite and restored at startup, so schedules
// survive a restart. One-shot timers whose off window already passed while
// the core was down are cleared without firing; actuating hardware based
// on a stale schedule is worse than missing a cycle.
package scheduler
