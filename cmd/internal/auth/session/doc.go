// Package session authenticates principals and revokes their session tokens.
//
// Session tokens are opaque bearer strings minted by security/token. No
// session record is persisted on login; logout records the token in the
// revocation store for RevocationWindow. A token is not checked for having
// been issued before it is revoked.
package session
