package domainkey

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// ParsePublicKey parses the decoded value of the "p=" tag according to the
// key type (k=).
//
// RFC 6376 defines k=rsa public keys as ASN.1 DER encoded RSAPublicKey
// (PKCS#1), base64-encoded in DNS. For interoperability, this function also
// accepts SubjectPublicKeyInfo (PKIX) form.
//
// Key types other than rsa yield ErrInvalidKeyType; callers map that to a
// not-implemented verdict.
func ParsePublicKey(decoded []byte, keyType KeyType) (*rsa.PublicKey, error) {
	if keyType == "" {
		keyType = KeyTypeRSA
	}
	if keyType != KeyTypeRSA {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyType, keyType)
	}

	// RFC 6376: RSAPublicKey (PKCS#1) DER
	if pub, err := x509.ParsePKCS1PublicKey(decoded); err == nil {
		return pub, nil
	}
	// Interoperability: accept PKIX (SPKI) if present.
	pub, err := x509.ParsePKIXPublicKey(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rsa public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid rsa public key type: %T", pub)
	}
	return rsaPub, nil
}

// RSAPublicKey decodes and parses the key material carried by the record.
// A record with an empty p= tag yields ErrKeyRevoked.
func (d *DomainKey) RSAPublicKey() (*rsa.PublicKey, error) {
	if d.PublicKey == "" {
		return nil, ErrKeyRevoked
	}
	decoded, err := base64.StdEncoding.DecodeString(d.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	return ParsePublicKey(decoded, d.KeyType)
}

// ParsePrivateKey reads a PEM encoded RSA private key in PKCS#1
// ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") form.
func ParsePrivateKey(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type: %T", key)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM type: %s", block.Type)
	}
}
