package security

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"sort"
)

// PublicKeySet is implemented by key providers that can enumerate their
// verification keys for JWKS publication.
type PublicKeySet interface {
	PublicKeys() map[string]*rsa.PublicKey
}

// PublicKeys returns every verification key keyed by kid.
func (p *FileKeyProvider) PublicKeys() map[string]*rsa.PublicKey {
	keys := make(map[string]*rsa.PublicKey, len(p.keys))
	for kid, key := range p.keys {
		keys[kid] = key
	}
	return keys
}

// PublicKeys returns the single generated key keyed by its kid.
func (p *EphemeralKeyProvider) PublicKeys() map[string]*rsa.PublicKey {
	return map[string]*rsa.PublicKey{p.kid: &p.key.PublicKey}
}

// RenderJWKS produces the JSON Web Key Set for the supplied key set.
func RenderJWKS(set PublicKeySet) ([]byte, error) {
	public := set.PublicKeys()

	kids := make([]string, 0, len(public))
	for kid := range public {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	keys := make([]map[string]string, 0, len(kids))
	for _, kid := range kids {
		key := public[kid]
		if key == nil {
			continue
		}
		keys = append(keys, buildJWK(kid, key))
	}

	return json.Marshal(map[string]any{"keys": keys})
}

func buildJWK(kid string, key *rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
