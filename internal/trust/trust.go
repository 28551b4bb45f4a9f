// Package trust implements the optional signed-bundle envelope: an
// Ed25519 attestation over a bundle's etag, with the public key
// carried base64-encoded alongside it.
package trust

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const AttestationFormat = "ed25519-etag-v1"

// Envelope is the wire shape of a signed bundle:
// `{bundle, etag, tenor, trust: {...}}`. Bundle is left as raw JSON
// since interchange.Emit already produced it.
type Envelope struct {
	Bundle       []byte `json:"bundle"`
	Etag         string `json:"etag"`
	Tenor        string `json:"tenor"`
	Trust        Trust  `json:"trust"`
}

// Trust carries the attestation.
type Trust struct {
	AttestationFormat  string `json:"attestation_format"`
	BundleAttestation  string `json:"bundle_attestation"`
	SignerPublicKey    string `json:"signer_public_key"`
	TrustDomain        string `json:"trust_domain,omitempty"`
}

// GenerateKey produces a fresh Ed25519 keypair for signing bundles.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign produces a trust envelope for an already-emitted bundle. etag
// must be the hex SHA-256 interchange.Emit returned for bundleJSON.
func Sign(priv ed25519.PrivateKey, bundleJSON []byte, etag, tenor, trustDomain string) (Envelope, error) {
	etagBytes, err := hex.DecodeString(etag)
	if err != nil {
		return Envelope{}, fmt.Errorf("trust: etag is not valid hex: %w", err)
	}
	sig := ed25519.Sign(priv, etagBytes)
	return Envelope{
		Bundle: bundleJSON,
		Etag:   etag,
		Tenor:  tenor,
		Trust: Trust{
			AttestationFormat: AttestationFormat,
			BundleAttestation: base64.StdEncoding.EncodeToString(sig),
			SignerPublicKey:   base64.StdEncoding.EncodeToString(priv.Public().(ed25519.PublicKey)),
			TrustDomain:       trustDomain,
		},
	}, nil
}

// Verify reports whether env's attestation is a valid Ed25519 signature
// over env.Etag by the given public key.
func Verify(env Envelope) (bool, error) {
	pubBytes, err := base64.StdEncoding.DecodeString(env.Trust.SignerPublicKey)
	if err != nil {
		return false, fmt.Errorf("trust: signer_public_key is not valid base64: %w", err)
	}
	sigBytes, err := base64.StdEncoding.DecodeString(env.Trust.BundleAttestation)
	if err != nil {
		return false, fmt.Errorf("trust: bundle_attestation is not valid base64: %w", err)
	}
	etagBytes, err := hex.DecodeString(env.Etag)
	if err != nil {
		return false, fmt.Errorf("trust: etag is not valid hex: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pubBytes), etagBytes, sigBytes), nil
}

// SignWASM signs a WASM binary bound to a bundle, over the payload
// "sha256(wasm):bundle_etag".
func SignWASM(priv ed25519.PrivateKey, wasmSHA256Hex, bundleEtag string) string {
	payload := fmt.Sprintf("%s:%s", wasmSHA256Hex, bundleEtag)
	sig := ed25519.Sign(priv, []byte(payload))
	return base64.StdEncoding.EncodeToString(sig)
}
