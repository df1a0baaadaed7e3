// Package identity holds the registered-principal model and its persistence.
//
// Emails are stored exactly as submitted: uniqueness is case-sensitive and no
// normalization is applied. Credential hashes live on the Identity record but
// are never logged or returned to clients.
package identity
