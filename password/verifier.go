package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Params control the argon2id stretching cost for newly derived verifiers.
// Stored verifiers carry their own parameters and are checked under those.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Verifier derives and checks stretched password verifiers.
type Verifier struct {
	params Params
}

// NewVerifier validates the cost parameters and returns a Verifier.
func NewVerifier(p Params) (*Verifier, error) {
	switch {
	case p.Memory < minMemoryKB:
		return nil, errors.New("verifier memory must be >= 8192 KiB")
	case p.Time < minTimeCost:
		return nil, errors.New("verifier time cost must be >= 1")
	case p.Parallelism < minParallelism:
		return nil, errors.New("verifier parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return nil, errors.New("verifier salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return nil, errors.New("verifier key length must be >= 16")
	}
	return &Verifier{params: p}, nil
}

// Derive stretches password under a fresh random salt and returns the
// PHC-encoded verifier string to persist on the account record.
func (v *Verifier) Derive(password string) (string, error) {
	salt := make([]byte, v.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		v.params.Time,
		v.params.Memory,
		v.params.Parallelism,
		v.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		v.params.Memory,
		v.params.Time,
		v.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Check recomputes the verifier for password under the parameters stored in
// encoded and compares in constant time. A mismatch is (false, nil); an
// error means the stored string is malformed, which is an account-data
// fault rather than a wrong credential.
func (v *Verifier) Check(password, encoded string) (bool, error) {
	stored, err := parse(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		stored.salt,
		stored.time,
		stored.memory,
		stored.parallelism,
		uint32(len(stored.key)),
	)

	return subtle.ConstantTimeCompare(computed, stored.key) == 1, nil
}

type stored struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parse(encoded string) (*stored, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid verifier format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported verifier algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	if n, err := strconv.Atoi(version); err != nil || n != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var s stored
	if err := parseCosts(parts[3], &s); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid verifier salt")
	}
	key, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("invalid verifier key")
	}

	s.salt = salt
	s.key = key
	return &s, nil
}

func parseCosts(section string, s *stored) error {
	pairs := strings.Split(section, ",")
	if len(pairs) != 3 {
		return errors.New("invalid verifier cost section")
	}

	var haveM, haveT, haveP bool
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid verifier cost entry")
		}
		switch name {
		case "m":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory cost")
			}
			s.memory = uint32(n)
			haveM = true
		case "t":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time cost")
			}
			s.time = uint32(n)
			haveT = true
		case "p":
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism cost")
			}
			s.parallelism = uint8(n)
			haveP = true
		default:
			return errors.New("unsupported cost parameter")
		}
	}

	if !haveM || !haveT || !haveP {
		return errors.New("missing cost parameter")
	}
	return nil
}
