package smtp

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/emersion/go-msgauth/dkim"
)

type DKIMOptions struct {
	Selector string
	Signer   crypto.Signer
}

// LoadDKIMPrivateKey reads a PEM encoded PKCS#1 or PKCS#8 private key.
func LoadDKIMPrivateKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}

	return signer, nil
}

func signMessage(msg []byte, domain string, opts DKIMOptions) ([]byte, error) {
	signOpts := &dkim.SignOptions{
		Domain:   domain, // MUST match From domain
		Selector: opts.Selector,
		Signer:   opts.Signer,
		HeaderKeys: []string{
			"from",
			"to",
			"subject",
			"date",
			"message-id",
		},
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(msg), signOpts); err != nil {
		return nil, err
	}

	return signed.Bytes(), nil
}
