// Package compiler turns version-gated GraphQL templates into queries.
//
// A template is an ordinary GraphQL executable document in which a comment
// of the form
//
//	# @version >= 14.0.0
//
// gates the field, fragment spread, inline fragment, variable definition or
// definition that follows it. Several constraints may share a comment
// (">= 13.0 < 14") and several gate comments may precede one node; all of
// them must hold for the node to be kept.
//
// The pipeline is lex, Parse (recursive descent into an ir.Document with
// gates attached to nodes), Prune (gate evaluation plus the cascades that
// keep the document well formed) and Emit (splicing the original text).
// Compile runs all of them and re-parses the result with gqlparser.
package compiler
