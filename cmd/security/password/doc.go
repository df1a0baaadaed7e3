// Package password provides password policy and credential hashing for warden.
//
// It implements Argon2id hashing using a PHC-like encoded string format and includes:
//   - Configurable Argon2id parameters (via environment variables)
//   - Password complexity policy (length, upper, lower, digit)
//   - Strict hash decoding and verification with anti-DoS bounds
//   - Verification of legacy bcrypt hashes ($2a$/$2b$/$2y$)
//
// Security notes:
//   - Hash strings are treated as untrusted input during Verify and are validated accordingly.
//   - New hashes are always Argon2id; bcrypt is verify-only.
package password
