// Package auth defines the error taxonomy shared by the credential and
// session lifecycle operations.
//
// Operations return *Error values whose Kind is one of the sentinels below.
// Transport layers switch on Kind (via errors.Is) and never expose Err.
package auth
