// Package version parses provider server versions and version gates.
//
// Server versions are reported in loose forms ("14.5.0", "13.6.1-ee",
// "v15.2"). Only the numeric major.minor.patch core takes part in ordering;
// suffixes such as GitLab editions are carried for display only.
//
// A gate is a single comparison against a version, for example ">= 14.0.0".
// Gates attached to the same template node are AND-ed.
package version
