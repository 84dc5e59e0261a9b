// Package structured turns a caller-supplied JSON Schema into a runtime
// enforcement contract: a strict provider payload suitable for constrained
// generation, plus a recursive validator used to re-check the model's raw
// output. Constrained generation is a best-effort guarantee, not an absolute
// one, so both halves are always produced together.
package structured
