package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtv-remote/gtv-go/pkg/cert"
)

func testKeystoreConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Thing = "living-room"
	cfg.Keystore.Dir = t.TempDir()
	cfg.Keystore.Password = "secret"
	cfg.Keystore.KeyBits = 1024
	return cfg
}

func TestKeystoreLifecycle(t *testing.T) {
	cfg := testKeystoreConfig(t)
	var out bytes.Buffer

	require.NoError(t, runKeystoreGenerate(cfg, false, &out))
	assert.Contains(t, out.String(), cfg.KeystorePath(false))
	assert.Contains(t, out.String(), "RSA 1024")
	assert.FileExists(t, cfg.KeystorePath(false))

	// Generating again keeps the identity.
	store := cert.NewFileStore(cfg.KeystorePath(false), "secret")
	require.NoError(t, store.Load())
	first, err := store.Identity()
	require.NoError(t, err)
	require.NoError(t, runKeystoreGenerate(cfg, false, &out))
	require.NoError(t, store.Load())
	second, err := store.Identity()
	require.NoError(t, err)
	assert.True(t, first.Certificate.Equal(second.Certificate))

	out.Reset()
	require.NoError(t, runKeystoreShow(cfg, false, &out))
	assert.Contains(t, out.String(), cert.Fingerprint(first.Certificate))
	assert.Contains(t, out.String(), "not paired")

	device, err := cert.GenerateIdentity("device", 1024)
	require.NoError(t, err)
	require.NoError(t, store.SetDeviceCA(device.Certificate))
	require.NoError(t, store.Save())

	out.Reset()
	require.NoError(t, runKeystoreShow(cfg, false, &out))
	assert.Contains(t, out.String(), cert.Fingerprint(device.Certificate))

	exportDir := filepath.Join(t.TempDir(), "pem")
	out.Reset()
	require.NoError(t, runKeystoreExport(cfg, false, exportDir, &out))
	identityPEM, err := cert.ReadCertFile(filepath.Join(exportDir, "living-room.crt"))
	require.NoError(t, err)
	assert.True(t, identityPEM.Equal(first.Certificate))
	devicePEM, err := cert.ReadCertFile(filepath.Join(exportDir, "living-room-device.crt"))
	require.NoError(t, err)
	assert.True(t, devicePEM.Equal(device.Certificate))

	out.Reset()
	require.NoError(t, runKeystoreReset(cfg, false, &out))
	_, err = os.Stat(cfg.KeystorePath(false))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, runKeystoreShow(cfg, false, &out), cert.ErrKeystoreNotFound)
}

func TestKeystoreWrongPassword(t *testing.T) {
	cfg := testKeystoreConfig(t)
	require.NoError(t, runKeystoreGenerate(cfg, true, &bytes.Buffer{}))

	cfg.Keystore.Password = "other"
	assert.ErrorIs(t, runKeystoreShow(cfg, true, &bytes.Buffer{}), cert.ErrKeystoreLocked)
	assert.ErrorIs(t, runKeystoreShow(cfg, false, &bytes.Buffer{}), cert.ErrKeystoreNotFound,
		"the relay keystore is a separate file")
}
