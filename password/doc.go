// Package password computes and checks stretched password verifiers.
//
// A verifier is an argon2id digest in PHC string format with a per-account
// salt. Checking a candidate password recomputes the digest under the
// parameters recorded in the stored string and compares in constant time,
// so verification cost stays asymmetric to brute-force cost and a partial
// match leaks nothing.
//
// The package never logs, stores, or returns the candidate password.
package password
