package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"followgraph/pkg/config"
	"followgraph/pkg/storage"
)

// PassphraseEnv overrides the generated passphrase of the encrypted store
const PassphraseEnv = config.EnvPrefix + "PASSPHRASE"

const (
	saltSize        = 32
	keySize         = 32
	iterations      = 100000
	envelopeVersion = 1
	passphraseFile  = ".passphrase"
)

// envelope is the on-disk form: a salt and the AES-GCM sealed JSON of all
// credentials keyed by name. Byte fields are base64 in JSON.
type envelope struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"encrypted"`
	Modified time.Time `json:"modified"`
}

type vault map[string]Credentials

// EncryptedFileStore keeps credentials in one encrypted file, for machines
// without a system keyring
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// NewEncryptedFileStore creates an encrypted credential file at path. The
// passphrase comes from PassphraseEnv, or is generated once and kept in a
// .passphrase file next to the credentials.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	pass, err := loadPassphrase(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

// Store saves or replaces credentials under their name
func (e *EncryptedFileStore) Store(creds *Credentials) error {
	if creds == nil || creds.Name == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(v vault) error {
		v[creds.Name] = *creds
		return nil
	})
}

// Retrieve returns the named credentials
func (e *EncryptedFileStore) Retrieve(name string) (*Credentials, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	v, _, err := e.read()
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	creds, ok := v[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &creds, nil
}

// List returns all stored credentials sorted by name
func (e *EncryptedFileStore) List() ([]*Credentials, error) {
	e.mu.RLock()
	v, _, err := e.read()
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]*Credentials, 0, len(v))
	for _, c := range v {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named credentials; the file goes with the last entry
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(v vault) error {
		if _, ok := v[name]; !ok {
			return ErrCredentialsNotFound
		}
		delete(v, name)
		return nil
	})
}

// Exists reports whether the named credentials can be read
func (e *EncryptedFileStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}

// update applies fn to the decrypted vault and writes the result back
func (e *EncryptedFileStore) update(fn func(vault) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, salt, err := e.read()
	if err != nil {
		return err
	}
	if err := fn(v); err != nil {
		return err
	}

	if len(v) == 0 {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credential file: %w", err)
		}
		return nil
	}
	return e.write(v, salt)
}

// read decrypts the file. A missing file is an empty vault with no salt.
func (e *EncryptedFileStore) read() (vault, []byte, error) {
	content, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return vault{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	plain, err := open(e.key(env.Salt), env.Sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	v := vault{}
	if err := json.Unmarshal(plain, &v); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return v, env.Salt, nil
}

// write seals v with a key derived from salt, creating a salt on first use
func (e *EncryptedFileStore) write(v vault, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	sealed, err := seal(e.key(salt), plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	content, err := json.MarshalIndent(envelope{
		Version:  envelopeVersion,
		Salt:     salt,
		Sealed:   sealed,
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	err = storage.WriteFileAtomic(e.path, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
	if err != nil {
		return err
	}
	return os.Chmod(e.path, 0600)
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
}

// loadPassphrase prefers PassphraseEnv, then a stored passphrase in dir, and
// otherwise generates and stores a new one
func loadPassphrase(dir string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}

	path := filepath.Join(dir, passphraseFile)
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return content, nil
	}

	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := []byte(base64.URLEncoding.EncodeToString(raw))
	if err := os.WriteFile(path, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext
func seal(key, plain []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, sealed[:n], sealed[n:], nil)
}
