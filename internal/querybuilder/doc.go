// Package querybuilder produces server-version-correct GraphQL queries from
// version-gated templates and memoizes the results.
//
// One Builder is created per provider server identity (for example a
// GitLab self-managed host) and lives as long as the provider connection.
// Its cache is keyed by (identity, operation, normalized version) and is
// never evicted: the set of operations and versions a connection sees is
// small and fixed.
//
//	b := querybuilder.New("gitlab*com")
//	query, err := b.Build("14.5.0", mergeRequestTemplate, "GetPullRequest")
//
// Unparseable versions fall back to version.Baseline so callers still get
// the most conservative query shape. Malformed templates fail with a
// *compiler.TemplateError.
package querybuilder
