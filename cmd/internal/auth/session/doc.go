// Package session implements token issuance and the login/refresh handshake.
//
// It owns two concerns:
//
//   - TokenManager mints and verifies the two signed token classes (access,
//     refresh), each bound to its own HMAC secret so one class can never be
//     forged from the other's key material.
//   - Service drives the handshake state machine (Register, Login, Refresh,
//     Logout) over the identity store. A user holds at most one valid refresh
//     token at a time; every successful login or refresh overwrites the slot,
//     and an already-exchanged refresh token is rejected on reuse.
package session
