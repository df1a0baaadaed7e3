// Package token issues opaque session tokens and parses bearer credentials.
//
// Tokens are 32 lowercase hex characters drawn from crypto/rand. They carry
// no claims and are not signed; possession is the proof. Revocation is
// tracked server-side by the revocation store, not here.
package token
