// Package signer produces OpenPGP signatures for generated update manifests.
package signer

// Signer signs generated metadata
type Signer interface {
	// SignDetached creates an armored detached signature (RELEASES.asc)
	SignDetached(data []byte) ([]byte, error)

	// PublicKey returns the armored public key clients verify with
	PublicKey() ([]byte, error)
}
