// Package backends provides the shared HTTP plumbing for concrete backend
// clients: the OpenAI-compatible wire format, uniform error mapping, and an
// embeddable base client the per-provider packages build on.
package backends
