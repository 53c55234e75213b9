package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/cespare/xxhash"
	"github.com/rakutentech/jwk-go/jwk"
)

const SigningKeyFile = "signing.key"

var ErrorInvalidPassphrase = errors.New("invalid signing key passphrase")

func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating public/private key pair: %w", err)
	}
	return privateKey, nil
}

// KeyID derives a short stable identifier from a public key.
func KeyID(publicKey *ecdsa.PublicKey) string {
	xxxHash := xxhash.New()
	xxxHash.Write([]byte(publicKey.X.Bytes()))
	xxxHash.Write([]byte(publicKey.Y.Bytes()))
	rawID := xxxHash.Sum(nil)
	return base58.Encode(rawID[:])
}

// EncodePrivateKey serialises the key as a JWK sealed with AES-GCM under a
// key derived from keyID and passphrase. Output is "nonce.ciphertext".
func EncodePrivateKey(privateKey *ecdsa.PrivateKey, keyID string, passphrase string) (string, error) {
	ks := jwk.NewSpec(privateKey)
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return "", fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = "ES256"
	rawJWK.Kid = keyID
	rawJWK.Crv = "P-256"

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshalling JWK: %w", err)
	}

	aesgcm, err := sealer(keyID, passphrase)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("creating AES nonce: %w", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, keyData, nil)
	sb := strings.Builder{}
	sb.WriteString(base64.StdEncoding.EncodeToString(nonce))
	sb.WriteRune('.')
	sb.WriteString(base64.StdEncoding.EncodeToString(ciphertext))

	return sb.String(), nil
}

func DecodePrivateKey(encoded string, keyID string, passphrase string) (*ecdsa.PrivateKey, error) {
	parts := strings.Split(strings.TrimSpace(encoded), ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid private key")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	aesgcm, err := sealer(keyID, passphrase)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	keyData, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrorInvalidPassphrase
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	privateKey, ok := keySpec.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", keySpec.Key)
	}
	return privateKey, nil
}

func EncodePublicKey(publicKey *ecdsa.PublicKey, keyID string) (string, error) {
	ks := jwk.NewSpec(publicKey)
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return "", fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = "ES256"
	rawJWK.Kid = keyID
	rawJWK.Crv = "P-256"

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshalling JWK: %w", err)
	}
	return base64.StdEncoding.EncodeToString(keyData), nil
}

func DecodePublicKey(publicKey string) (*ecdsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	key, ok := keySpec.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", keySpec.Key)
	}
	return key, nil
}

// LoadOrCreateSigningKey reads the signing key from dataDir, creating it on
// first use. With no dataDir the key is ephemeral and tokens die with the
// process.
func LoadOrCreateSigningKey(dataDir string, passphrase string) (*ecdsa.PrivateKey, error) {
	if dataDir == "" {
		return GenerateSigningKey()
	}

	keyPath := path.Join(dataDir, SigningKeyFile)
	contents, err := os.ReadFile(keyPath)
	if err == nil {
		lines := strings.SplitN(string(contents), "\n", 2)
		if len(lines) != 2 {
			return nil, fmt.Errorf("malformed signing key file %s", keyPath)
		}
		return DecodePrivateKey(lines[1], strings.TrimSpace(lines[0]), passphrase)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	privateKey, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	keyID := KeyID(&privateKey.PublicKey)
	encoded, err := EncodePrivateKey(privateKey, keyID, passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypting signing key: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyID+"\n"+encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing signing key: %w", err)
	}
	return privateKey, nil
}

func sealer(keyID string, passphrase string) (cipher.AEAD, error) {
	shaHash := sha256.New()
	shaHash.Write(base58.Decode(keyID))
	shaHash.Write([]byte(passphrase))
	key := shaHash.Sum(nil)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM cipher: %w", err)
	}
	return aesgcm, nil
}
