// Package reactive implements the query and mutation state machines that
// UI adapters bind to.
//
// Each Query or Mutation owns at most one in-flight request:
//
//	Idle ──fetch/mutate──▶ Running ──envelope──▶ Success
//	                          │  ▲                  │
//	                          │  └──re-invocation───┤
//	                          └──────error─────▶ Error
//
// A new invocation while Running cancels the previous one. The superseded
// call returns a cancelled *reqerr.RequestError and never reaches OnSuccess
// or OnError; only the latest invocation updates Data and Err. Cancel moves
// a running instance to Error with the cancelled error.
//
// Subscribers registered with Subscribe observe every state change and are
// called synchronously, outside the instance lock.
package reactive
