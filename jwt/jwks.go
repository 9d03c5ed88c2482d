package jwtkit

import (
	"crypto/rsa"
	"encoding/json"
	"sort"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// RenderJWKS builds a deterministic JWKS document from the given public keys.
// Keys are sorted by kid so repeated renders are byte-identical.
func RenderJWKS(keys map[string]*rsa.PublicKey) ([]byte, error) {
	set := jwk.NewSet()
	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	for _, kid := range kids {
		k, err := jwk.FromRaw(keys[kid])
		if err != nil {
			return nil, err
		}
		if err := k.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, err
		}
		if err := k.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, err
		}
		if err := set.AddKey(k); err != nil {
			return nil, err
		}
	}
	return json.Marshal(set)
}
