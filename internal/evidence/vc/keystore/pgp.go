package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// KeyLoadError is returned when the signing key cannot be read, parsed or
// decrypted.
type KeyLoadError struct {
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("pgp key %s: %v", e.Path, e.Err)
}

func (e *KeyLoadError) Unwrap() error {
	return e.Err
}

var ErrNoPrivateKey = errors.New("no private keys found in armored key data")

// PGP reads an armored private key from disk and decrypts it with the
// configured passphrase. Load reads the file on every call.
type PGP struct {
	path       string
	passphrase string
	logger     *slog.Logger
}

// NewPGP creates a key loader for the armored key at path.
func NewPGP(path, passphrase string, logger *slog.Logger) *PGP {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGP{path: path, passphrase: passphrase, logger: logger}
}

// Load returns the first private key entity in the key file, decrypted.
func (p *PGP) Load(ctx context.Context) (*openpgp.Entity, error) {
	if p.path == "" {
		return nil, &KeyLoadError{Path: p.path, Err: errors.New("key path not configured")}
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, &KeyLoadError{Path: p.path, Err: err}
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, &KeyLoadError{Path: p.path, Err: fmt.Errorf("parse armored key: %w", err)}
	}

	var entity *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			entity = e
			break
		}
	}
	if entity == nil {
		return nil, &KeyLoadError{Path: p.path, Err: ErrNoPrivateKey}
	}

	if entity.PrivateKey.Encrypted {
		if err := entity.DecryptPrivateKeys([]byte(p.passphrase)); err != nil {
			return nil, &KeyLoadError{Path: p.path, Err: fmt.Errorf("decrypt private key: %w", err)}
		}
	}

	p.logger.DebugContext(ctx, "pgp private key loaded",
		"key_id", entity.PrimaryKey.KeyIdString(),
		"passphrase_set", p.passphrase != "",
	)
	return entity, nil
}
