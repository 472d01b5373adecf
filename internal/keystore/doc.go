// Package keystore implements the trust stores used to check toolchain
// signatures.
//
// Two backends are provided:
//
//   - OpenPGPStore keeps the publisher's public keys in a keyring file owned
//     by swiftup and verifies signatures in-process with go-crypto. Key
//     refresh talks HKP to the configured key server directly.
//   - GPGStore drives the host's gpg binary (import, refresh-keys, verify)
//     and therefore shares the user's ambient keyring.
//
// Both satisfy the same three operations: Import a keys document, Refresh
// the publisher's keys from a key server and Verify a detached signature.
// Verification fails closed: an empty keyring, an unknown signer or a bad
// signature are all errors.
package keystore
