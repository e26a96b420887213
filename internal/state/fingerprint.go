package state

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint identifies the content of a Document. Two documents with the
// same fingerprint are treated as identical by the sync engine.
type Fingerprint [32]byte

// documentDomainKey keys the BLAKE3 hash so document fingerprints never
// collide with hashes computed for other purposes. ASCII, zero-padded to 32
// bytes.
var documentDomainKey = [32]byte{
	'm', 'y', 'd', 'a', 'y', 's', '.', 'd', 'o', 'c', 'u', 'm', 'e', 'n', 't', '.',
	'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

func (f Fingerprint) String() string {
	if f.IsZero() {
		return ""
	}
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex digits, for logs.
func (f Fingerprint) Short() string {
	s := f.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = Fingerprint{}
		return nil
	}
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	if len(raw) != len(f) {
		return fmt.Errorf("fingerprint: want %d bytes, got %d", len(f), len(raw))
	}
	copy(f[:], raw)
	return nil
}

// MarshalCanonical encodes doc the one way fingerprints are computed from:
// struct field order, sorted map keys, no HTML escaping, no trailing
// newline, NFC-normalised text.
func MarshalCanonical(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("canonical document: %w", err)
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	// Escapes are ASCII, so normalising the encoded text normalises every
	// string in it.
	return norm.NFC.Bytes(out), nil
}

// FingerprintOf returns the keyed BLAKE3 hash of the canonical encoding of
// doc.
func FingerprintOf(doc Document) (Fingerprint, error) {
	data, err := MarshalCanonical(doc)
	if err != nil {
		return Fingerprint{}, err
	}
	return keyedHash(data), nil
}

func keyedHash(data []byte) Fingerprint {
	// NewKeyed only fails for a key of the wrong length.
	h, err := blake3.NewKeyed(documentDomainKey[:])
	if err != nil {
		panic("state: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	h.Write(data)
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}
