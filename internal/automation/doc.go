// Package automation implements the Meridian rule engine.
//
// An automation pairs a trigger (a named category of CRM event plus
// optional match conditions) with an ordered list of actions. When the
// event intake receives a matching event it fires the engine, which walks
// the actions strictly in order, records per-action outcomes in an
// execution log, and hands delayed actions to the durable scheduler.
//
// The package is organised around a Repository (SQLite persistence), a
// Registry (cached rule management), a Dispatcher (per-action-type side
// effects against the CRM collaborators), the Engine (orchestration and
// execution recording), a Scheduler (deferred actions), and a stats
// aggregator over execution history.
package automation
