package detect

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSignature is returned by ParseSignature for malformed input.
var ErrInvalidSignature = errors.New("invalid magic signature")

// Signature is a magic byte sequence expected at a fixed offset.
type Signature struct {
	Name   string
	Offset int
	Magic  []byte
}

// Match reports whether data carries the signature.
func (s Signature) Match(data []byte) bool {
	if len(s.Magic) == 0 || s.Offset < 0 || len(data) < s.Offset+len(s.Magic) {
		return false
	}
	return bytes.Equal(data[s.Offset:s.Offset+len(s.Magic)], s.Magic)
}

func (s Signature) String() string {
	return fmt.Sprintf("%s:%d:%s", s.Name, s.Offset, hex.EncodeToString(s.Magic))
}

// ParseSignature parses "name:offset:hexbytes", for example
// "ole2:0:d0cf11e0a1b11ae1".
func ParseSignature(s string) (Signature, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Signature{}, fmt.Errorf("%w %q: want name:offset:hex", ErrInvalidSignature, s)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Signature{}, fmt.Errorf("%w %q: empty name", ErrInvalidSignature, s)
	}

	offset, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || offset < 0 {
		return Signature{}, fmt.Errorf("%w %q: bad offset", ErrInvalidSignature, s)
	}

	magic, err := hex.DecodeString(strings.TrimSpace(parts[2]))
	if err != nil || len(magic) == 0 {
		return Signature{}, fmt.Errorf("%w %q: bad magic bytes", ErrInvalidSignature, s)
	}

	return Signature{Name: name, Offset: offset, Magic: magic}, nil
}

// ParseSignatures parses every entry of list.
func ParseSignatures(list []string) ([]Signature, error) {
	sigs := make([]Signature, 0, len(list))
	for _, s := range list {
		sig, err := ParseSignature(s)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}
