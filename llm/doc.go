// Package llm defines the backend abstraction and the execution orchestrator
// that drives an ordered chain of backend candidates. Each candidate gets a
// bounded retry budget; when it is exhausted or structurally incompatible the
// orchestrator falls back to the next one. Structured-output requests never
// degrade silently to plain text.
package llm
