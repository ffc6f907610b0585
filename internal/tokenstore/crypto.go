package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// encrypted-at-rest envelope written instead of the raw JSON array
type encryptedFile struct {
	Version   int    `json:"version"`
	Encrypted bool   `json:"encrypted"`
	Payload   string `json:"payload"`
}

func isEncryptedPayload(data []byte) bool {
	var env encryptedFile
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	return env.Encrypted && env.Payload != ""
}

func deriveKey(password, salt string) ([]byte, error) {
	return scrypt.Key([]byte(password), []byte(salt), 1<<15, 8, 1, 32)
}

func encryptPayload(plain []byte, password, salt string) ([]byte, error) {
	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	env := encryptedFile{
		Version:   1,
		Encrypted: true,
		Payload:   base64.StdEncoding.EncodeToString(sealed),
	}
	return json.MarshalIndent(env, "", "  ")
}

func decryptPayload(data []byte, password, salt string) ([]byte, error) {
	var env encryptedFile
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}
