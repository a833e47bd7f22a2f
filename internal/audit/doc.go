// Package audit carries the security audit event model and sinks used by
// the engine's asynchronous dispatcher. Sinks own delivery; the engine
// only decides what to record.
package audit
