// Package ir holds the syntax tree the compiler builds from a query
// template: documents, nodes with byte spans, and the version gates
// attached to them.
//
// ir imports nothing internal so that the compiler, the builder and the
// tooling can share node kinds and positions without import cycles.
package ir
