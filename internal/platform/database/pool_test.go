package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURL(t *testing.T) {
	pool, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Error(t, pool.Health(t.Context()))
	assert.NoError(t, pool.Close())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: "postgres://%zz"})
	assert.ErrorContains(t, err, "parse database url")
}

func TestLoadTLS(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadTLS(filepath.Join(t.TempDir(), "ca.pem"), "db")
		assert.ErrorContains(t, err, "read CA certificate")
	})

	t.Run("file without certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

		_, err := loadTLS(path, "db")
		assert.ErrorContains(t, err, "contains no PEM certificates")
	})
}
