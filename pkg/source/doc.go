// Package source provides an in-memory DeclarationSource and Lineage for the
// annotation engine.
//
// Responsibilities:
//   - Memory records the annotations attached to declarations and the
//     meta-annotations attached to metadata types.
//   - Memory records declaration inheritance (Extend) and interface
//     implementation (Implement) so that Engine.Composite can walk them.
//   - Lookups are keyed by Declaration.DeclarationKey(); two declarations with
//     the same key are the same declaration.
//
// Data flow:
//
//	catalog / test fixture -> Memory -> annot.NewEngine(memory, registry, annot.WithLineage(memory))
//
// Memory returns copies of its slices so callers may not disturb the engine's
// caches; the engine caches what it reads, so call Engine.ClearCaches after
// attaching more metadata to a declaration that was already queried.
package source
