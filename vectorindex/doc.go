// Package vectorindex abstracts the vector index service behind narrow
// Provider and Index interfaces and provides a Manager that lazily
// provisions the per-environment index.
//
// The default in-process implementation lives in vectorindex/vecgo.
package vectorindex
