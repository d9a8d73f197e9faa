// Package vm executes the dispatch protocol the generator emits.
//
// This package contains:
//   - VTables whose slots are addressed by byte offset, laid out by package layout
//   - An explicit class registry with init and teardown
//   - Parcel bootstrap in topological order
//   - An interpreter for synthesized Dump/Load plans
//   - A canonical CBOR codec for dumped records
//
// It states what generated C does in a form tests can run.
package vm
