// Package address defines the 32-byte identities used for owners,
// beneficiaries, mints, treasuries and ledger accounts.
//
// Account and treasury addresses are never stored in a registry. They are
// derived from a namespace and a list of seeds, so any party holding the
// same inputs can recompute and verify them. A derived address is the
// SHA-256 of the seeds, a bump byte and the namespace, and the bump is
// chosen so that the result is not a valid ed25519 public key: nobody can
// hold a private key for a derived address.
//
// The text form is base58, matching common wallet tooling.
package address

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql/driver"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Size is the length of an address in bytes.
const Size = 32

const (
	// MaxSeedLen is the longest single seed accepted by the derivation.
	MaxSeedLen = 32

	// MaxSeeds is the largest number of seeds accepted by the derivation.
	MaxSeeds = 16
)

const derivationMarker = "VestingDerivedAddress"

var (
	// ErrSeedTooLong is returned when a seed exceeds MaxSeedLen.
	ErrSeedTooLong = errors.New("address: seed too long")

	// ErrTooManySeeds is returned when more than MaxSeeds seeds are given.
	ErrTooManySeeds = errors.New("address: too many seeds")

	// ErrOnCurve is returned when a bump yields a valid ed25519 point.
	ErrOnCurve = errors.New("address: derived address is on the ed25519 curve")

	// ErrNoViableBump is returned when every bump yields an on-curve point.
	ErrNoViableBump = errors.New("address: no viable bump found")
)

// Address is a 32-byte identity.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Address [Size]byte

// Zero is the empty address.
var Zero Address

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("address: expected %d bytes, got %d", Size, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	if s == "" {
		return Zero, errors.New("address: parse: empty string")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("address: parse %q: %w", s, err)
	}
	a, err := FromBytes(raw)
	if err != nil {
		return Zero, fmt.Errorf("address: parse %q: %w", s, err)
	}
	return a, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Random returns an address filled from crypto/rand. It is meant for
// generating fresh wallet identities in tools and tests.
func Random() Address {
	var a Address
	if _, err := rand.Read(a[:]); err != nil {
		panic(fmt.Sprintf("address: read random: %v", err))
	}
	return a
}

// Namespace turns a label into the namespace address that scopes every
// derivation made by one deployment.
func Namespace(label string) Address {
	return sha256.Sum256([]byte(label))
}

// String returns the base58 encoding. The zero address encodes as well;
// use IsZero to detect it.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	if a.IsZero() {
		return []byte{}, nil
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Zero
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}

// ──────────────────────────────────────────────────
// Derivation
// ──────────────────────────────────────────────────

// CreateDerived computes the address for the given seeds and bump.
// It fails with ErrOnCurve when the candidate is a valid public key.
func CreateDerived(namespace Address, bump uint8, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrTooManySeeds
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Zero, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(namespace[:])
	h.Write([]byte(derivationMarker))

	var a Address
	copy(a[:], h.Sum(nil))
	if onCurve(a) {
		return Zero, ErrOnCurve
	}
	return a, nil
}

// FindDerived searches bumps from 255 downwards and returns the first
// off-curve address together with the bump that produced it.
func FindDerived(namespace Address, seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		a, err := CreateDerived(namespace, uint8(bump), seeds...)
		if err == nil {
			return a, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

// VerifyDerived reports whether a is the canonical derived address for the
// given namespace and seeds.
func VerifyDerived(a, namespace Address, seeds ...[]byte) bool {
	want, _, err := FindDerived(namespace, seeds...)
	return err == nil && want == a
}

func onCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
