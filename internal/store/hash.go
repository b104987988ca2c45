package store

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainTemplate = "gqlgate/template/v1"
	DomainQuery    = "gqlgate/query/v1"
	DomainCatalog  = "gqlgate/catalog/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + part0 + 0x00 + part1 ...)
// Each part is NFC-normalized first.
func hashWithDomain(domain string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte{0x00})
		h.Write([]byte(norm.NFC.String(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TemplateHash hashes a query template.
func TemplateHash(template string) string {
	return hashWithDomain(DomainTemplate, template)
}

// QueryHash hashes compiled query text.
func QueryHash(query string) string {
	return hashWithDomain(DomainQuery, query)
}

// CatalogHash hashes an ordered list of catalog inputs (file names and
// contents, or template texts).
func CatalogHash(parts ...string) string {
	return hashWithDomain(DomainCatalog, parts...)
}
