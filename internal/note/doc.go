// Package note implements a commit-and-nullify scheme for privacy-preserving
// value notes.
//
// Overview:
//   - A holder commits to a (value, secret) pair without revealing either;
//     the commitment is a domain-separated, length-prefixed SHA-256 digest
//   - Spend authorization is proven by revealing a nullifier, a one-way
//     BLAKE3 derivation from (commitment, secret)
//   - A SpentSet records revealed nullifiers and enforces at-most-once spend
//   - A Registry tracks ID-keyed notes and their unspent/spent state against
//     a shared SpentSet
//
// Security model:
//   - Commitments are hiding and binding up to the security of SHA-256
//   - Nullifiers use an algorithmically distinct hash (BLAKE3) so observers
//     cannot link commitments to nullifiers without the secret
//   - Secrets are zeroized on release and never appear in any serialized
//     representation; attempts to deserialize secret-bearing types fail
//   - All randomness comes from crypto/rand
//
// This package is not a zero-knowledge proof system: a verifier can only
// check that a revealed nullifier belongs to a commitment by recomputing
// the commitment from the disclosed secret.
package note
