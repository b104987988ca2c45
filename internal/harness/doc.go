// Package harness runs template conformance scenarios.
//
// A scenario names a template (inline or by file), an operation and a
// target server version, and states what the compiled query must and must
// not contain:
//
//	name: draft_present_on_14
//	description: draft replaces workInProgress from 14.0.0
//	template_file: ../templates/mergeRequest0.graphql
//	operation: GetPullRequest
//	version: 14.5.0
//	expect:
//	  contains: [draft]
//	  absent: [workInProgress]
//
// Scenarios compile through querybuilder.Builder, so unparseable versions
// fall back to the baseline exactly as they do at runtime. Compiled text can
// be pinned with golden files under testdata/golden.
package harness
