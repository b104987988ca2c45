// Package testutil holds fixtures and deterministic helpers shared by tests.
package testutil
