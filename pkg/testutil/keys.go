package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/require"
)

// WalletKeyHex is a fixed secp256k1 test key. Its address is
// 0x2c7536E3605D9C16a7a3D7b1898e529396a65c23.
const WalletKeyHex = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// WritePGPKey generates an EdDSA signing key, armors it into a temp file and
// returns the path with the public entity. A non-empty passphrase encrypts the
// stored key.
func WritePGPKey(t *testing.T, passphrase string) (string, *openpgp.Entity) {
	t.Helper()

	cfg := &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA}
	entity, err := openpgp.NewEntity("idproxy test", "signing", "signing@example.com", cfg)
	require.NoError(t, err)

	if passphrase != "" {
		require.NoError(t, entity.EncryptPrivateKeys([]byte(passphrase), cfg))
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivateWithoutSigning(w, nil))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "private.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path, entity
}

// WritePublicKey armors only the public half of entity into a temp file.
func WritePublicKey(t *testing.T, entity *openpgp.Entity) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "public.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}
