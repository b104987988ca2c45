// Package catalog loads provider catalogs written in CUE.
//
// A catalog names each provider, the server identity its builder is created
// for, the server versions to compile against and the operation templates:
//
//	provider: gitlab: {
//		identity: "gitlab*com"
//		versions: ["13.6.1", "14.5.0"]
//		operation: GetPullRequest: file: "mergeRequest0.graphql"
//	}
//
// Template files are resolved relative to the catalog directory. An
// operation may carry its template inline with `template: """..."""`
// instead of `file`.
package catalog
