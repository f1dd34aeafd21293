package pairing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

func newCert(t *testing.T, key any, pub any) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func newRSACert(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return newCert(t, key, &key.PublicKey), key
}

func TestParsePIN(t *testing.T) {
	tests := []struct {
		in      string
		want    PIN
		wantErr bool
	}{
		{"A1B2C3", PIN{0xa1, 0xb2, 0xc3}, false},
		{"a1b2c3", PIN{0xa1, 0xb2, 0xc3}, false},
		{"  0f0f0f\n", PIN{0x0f, 0x0f, 0x0f}, false},
		{"12345", PIN{}, true},
		{"1234567", PIN{}, true},
		{"ZZZZZZ", PIN{}, true},
		{"", PIN{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePIN(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPIN) {
					t.Fatalf("expected ErrInvalidPIN, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePIN failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePIN(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPINString(t *testing.T) {
	assert.Equal(t, "0AB1C2", PIN{0x0a, 0xb1, 0xc2}.String())
}

func TestDigestDeterministic(t *testing.T) {
	client, _ := newRSACert(t)
	server, _ := newRSACert(t)
	pin := PIN{0x12, 0x34, 0x56}

	first := Digest(pin, client, server)
	second := Digest(pin, client, server)
	assert.Len(t, first, sha256.Size)
	assert.Equal(t, first, second)
}

func TestDigestMatchesReference(t *testing.T) {
	client, clientKey := newRSACert(t)
	server, serverKey := newRSACert(t)
	pin := PIN{0x01, 0x02, 0x03}

	h := sha256.New()
	h.Write(clientKey.N.Bytes())
	h.Write(big.NewInt(int64(clientKey.E)).Bytes())
	h.Write(serverKey.N.Bytes())
	h.Write(big.NewInt(int64(serverKey.E)).Bytes())
	h.Write([]byte{0x02, 0x03})

	assert.Equal(t, h.Sum(nil), Digest(pin, client, server))
}

func TestDigestSensitivity(t *testing.T) {
	client, _ := newRSACert(t)
	server, _ := newRSACert(t)
	other, _ := newRSACert(t)
	pin := PIN{0x12, 0x34, 0x56}
	base := Digest(pin, client, server)

	t.Run("second PIN byte", func(t *testing.T) {
		assert.NotEqual(t, base, Digest(PIN{0x12, 0x35, 0x56}, client, server))
	})
	t.Run("third PIN byte", func(t *testing.T) {
		assert.NotEqual(t, base, Digest(PIN{0x12, 0x34, 0x57}, client, server))
	})
	t.Run("client key", func(t *testing.T) {
		assert.NotEqual(t, base, Digest(pin, other, server))
	})
	t.Run("server key", func(t *testing.T) {
		assert.NotEqual(t, base, Digest(pin, client, other))
	})
	t.Run("order of certificates", func(t *testing.T) {
		assert.NotEqual(t, base, Digest(pin, server, client))
	})
	t.Run("first PIN byte only affects the match", func(t *testing.T) {
		a := Confirm(PIN{base[0], 0x34, 0x56}, client, server)
		b := Confirm(PIN{base[0] ^ 0xff, 0x34, 0x56}, client, server)
		assert.Equal(t, a.Digest, b.Digest)
		assert.True(t, a.Matches())
		assert.False(t, b.Matches())
	})
}

func TestDigestExponentChange(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	server, _ := newRSACert(t)

	a := &x509.Certificate{PublicKey: &rsa.PublicKey{N: key.N, E: 65537}}
	b := &x509.Certificate{PublicKey: &rsa.PublicKey{N: key.N, E: 3}}
	pin := PIN{0, 1, 2}
	assert.NotEqual(t, Digest(pin, a, server), Digest(pin, b, server))
}

func TestDigestNonRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ec := newCert(t, key, &key.PublicKey)
	pin := PIN{0xaa, 0xbb, 0xcc}

	want := sha256.Sum256([]byte{0xbb, 0xcc})
	assert.Equal(t, want[:], Digest(pin, ec, ec))
	assert.Equal(t, want[:], Digest(pin, nil, nil))
}

func TestConfirmationCode(t *testing.T) {
	client, _ := newRSACert(t)
	server, _ := newRSACert(t)
	digest := Digest(PIN{0, 0x34, 0x56}, client, server)

	c := Confirm(PIN{digest[0], 0x34, 0x56}, client, server)
	assert.Equal(t, [3]byte{digest[0], 0x34, 0x56}, c.Code())
	assert.True(t, c.Matches())
	assert.Len(t, c.Hex(), 64)
	assert.Equal(t, [3]byte(c.PIN), c.Code(), "a correct PIN is its own code")

	assert.False(t, Confirmation{}.Matches())
}

func TestRelayLegsAreIndependent(t *testing.T) {
	controller, _ := newRSACert(t)
	relay, _ := newRSACert(t)
	device, _ := newRSACert(t)
	pin := PIN{0x11, 0x22, 0x33}

	controllerLeg := Digest(pin, controller, relay)
	deviceLeg := Digest(pin, relay, device)
	assert.NotEqual(t, controllerLeg, deviceLeg)
	assert.Equal(t, controllerLeg, Digest(pin, controller, relay))
}

func TestMessages(t *testing.T) {
	digest := make([]byte, 32)
	digest[0] = 0x7f
	secret := protocol.PinRequest(protocol.Decode(digest))
	ack := protocol.SecretMessage(protocol.PairingSecretAck, digest)

	assert.True(t, IsSecret(secret))
	assert.False(t, IsSecretAck(secret))
	assert.True(t, IsSecretAck(ack))
	assert.False(t, IsSecret(protocol.LoginRequest(protocol.StepOptions, 0)))

	replacement := make([]byte, 32)
	replacement[31] = 0x01

	got, ok := Rewrite(secret, replacement)
	require.True(t, ok)
	assert.Equal(t, protocol.PinRequest(protocol.Decode(replacement)), got)

	got, ok = Rewrite(ack, replacement)
	require.True(t, ok)
	assert.True(t, IsSecretAck(got))
	assert.Contains(t, got, protocol.Decode(replacement))

	got, ok = Rewrite("c202020801", replacement)
	assert.False(t, ok)
	assert.Equal(t, "c202020801", got)
}

func TestStatus(t *testing.T) {
	status, err := Status(protocol.LoginRequest(protocol.StepOptions, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	// version 2, status 402
	status, err = Status("08021092035a00")
	assert.ErrorIs(t, err, ErrPairingRejected)
	assert.Equal(t, StatusBadSecret, status)

	_, err = Status("0802")
	assert.ErrorIs(t, err, protocol.ErrFieldNotFound)
}

func TestSecretDigest(t *testing.T) {
	digest := sha256.Sum256([]byte("secret"))

	got, err := SecretDigest(protocol.Encode(protocol.PinRequest(protocol.Decode(digest[:]))))
	require.NoError(t, err)
	assert.Equal(t, digest[:], got)

	got, err = SecretDigest(protocol.Encode(protocol.SecretMessage(protocol.PairingSecretAck, digest[:])))
	require.NoError(t, err)
	assert.Equal(t, digest[:], got)

	_, err = SecretDigest(protocol.Encode(protocol.LoginRequest(protocol.StepOptions, 0)))
	assert.ErrorIs(t, err, protocol.ErrFieldNotFound)

	_, err = SecretDigest([]byte{0xff})
	assert.ErrorIs(t, err, protocol.ErrMalformedField)
}

func TestRecover(t *testing.T) {
	client, _ := newRSACert(t)
	server, _ := newRSACert(t)

	pin := PIN{0x00, 0x9c, 0x41}
	digest := Digest(pin, client, server)
	pin[0] = digest[0]

	got, ok := Recover(digest, client, server)
	require.True(t, ok)
	assert.Equal(t, pin, got)
	assert.True(t, Confirm(got, client, server).Matches())

	_, ok = Recover(digest, server, client)
	assert.False(t, ok, "swapped certificates must not recover")

	_, ok = Recover(digest[:5], client, server)
	assert.False(t, ok)
}
