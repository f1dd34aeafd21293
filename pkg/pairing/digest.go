package pairing

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"io"
	"math/big"
)

// Digest computes the pairing digest for a PIN and the client and server
// certificates. Certificates without an RSA public key contribute nothing.
func Digest(pin PIN, client, server *x509.Certificate) []byte {
	h := sha256.New()
	writeKey(h, client)
	writeKey(h, server)
	h.Write(pin[1:3])
	return h.Sum(nil)
}

func writeKey(w io.Writer, cert *x509.Certificate) {
	if cert == nil {
		return
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return
	}
	w.Write(magnitude(pub.N))
	w.Write(magnitude(big.NewInt(int64(pub.E))))
}

// magnitude returns the absolute value of n, big-endian, without leading
// zero bytes.
func magnitude(n *big.Int) []byte {
	return bytes.TrimLeft(new(big.Int).Abs(n).Bytes(), "\x00")
}

// Confirmation is the result of checking a PIN against a certificate pair.
type Confirmation struct {
	// PIN is the challenge entered by the user.
	PIN PIN

	// Digest is the full pairing digest sent in the secret message.
	Digest []byte
}

// Confirm computes the confirmation for a PIN and certificate pair.
func Confirm(pin PIN, client, server *x509.Certificate) Confirmation {
	return Confirmation{PIN: pin, Digest: Digest(pin, client, server)}
}

// Code returns digest[0] || pin[1] || pin[2]. For a correctly typed PIN
// the code equals the PIN itself.
func (c Confirmation) Code() [3]byte {
	var code [3]byte
	if len(c.Digest) > 0 {
		code[0] = c.Digest[0]
	}
	code[1] = c.PIN[1]
	code[2] = c.PIN[2]
	return code
}

// Matches reports whether the first digest byte equals the first PIN byte.
func (c Confirmation) Matches() bool {
	return len(c.Digest) > 0 && c.Digest[0] == c.PIN[0]
}

// Hex returns the full digest as lower-case hex.
func (c Confirmation) Hex() string {
	return hex.EncodeToString(c.Digest)
}

// Recover finds the PIN a peer used to produce digest for a certificate
// pair. Only the last two PIN bytes enter the digest, so the search covers
// 65536 candidates; the first byte is the digest's own first byte.
func Recover(digest []byte, client, server *x509.Certificate) (PIN, bool) {
	if len(digest) != sha256.Size {
		return PIN{}, false
	}

	var keys bytes.Buffer
	writeKey(&keys, client)
	writeKey(&keys, server)

	buf := append(keys.Bytes(), 0, 0)
	n := len(buf)
	for hi := 0; hi < 256; hi++ {
		for lo := 0; lo < 256; lo++ {
			buf[n-2], buf[n-1] = byte(hi), byte(lo)
			sum := sha256.Sum256(buf)
			if bytes.Equal(sum[:], digest) {
				return PIN{digest[0], byte(hi), byte(lo)}, true
			}
		}
	}
	return PIN{}, false
}
