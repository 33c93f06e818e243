// Package password provides Argon2id password hashing for NoteNest.
//
// Hashes use a PHC-style encoded string so parameters travel with the hash.
// Verification treats the encoded hash as untrusted input: it is strictly
// decoded and refuses parameters far above the configured cost, so a
// poisoned hash string cannot cause pathological resource usage during Verify.
package password
