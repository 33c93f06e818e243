// Package identity is NoteNest's credential store boundary.
//
// It defines the canonical user record (username, email, password hash,
// single refresh-token slot, optional profile picture reference) and the
// Store interface the session handshake orchestrates. Stores are passive
// data holders: password hashing and token minting happen in the callers.
//
// The refresh slot is the only mutable state contended across requests for
// one user; SwapRefreshSlot is the single atomic primitive that rotates it.
package identity
