// Package token hashes refresh tokens for server-side storage.
//
// The plain refresh token is never persisted: the credential store keeps a
// deterministic hex digest in the user's single refresh slot, and rotation
// compares digests. With NOTENEST_TOKEN_HMAC_KEY set the digest is keyed
// (HMAC-SHA256), so a leaked database dump cannot be replayed as tokens.
package token
