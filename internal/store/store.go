// Package store implements the byte-addressable backing memory: the
// authoritative word/double accessors the cache writes through to.
package store

import (
	"encoding/binary"

	"github.com/maemo32/tomasim/internal/errs"
)

// Store is a fixed-size byte array with big-endian word (4B) and double
// (8B) accessors. Unlike the teacher's Memory (silent zero-return past the
// end), out-of-range access is a hard OutOfBounds error, matching spec.md
// §4.1 and §4.6.
type Store struct {
	bytes []byte
}

// New allocates a Store of the given size in bytes.
func New(size int) *Store {
	return &Store{bytes: make([]byte, size)}
}

// Len returns the backing array's size in bytes.
func (s *Store) Len() int { return len(s.bytes) }

func (s *Store) checkRange(op string, addr, size int) error {
	if addr < 0 || size < 0 || addr+size > len(s.bytes) {
		return errs.OutOfBoundsf(op, "address %d size %d exceeds store of %d bytes", addr, size, len(s.bytes))
	}
	return nil
}

// LoadWord reads 4 bytes at addr, big-endian, sign-extended to 64 bits.
func (s *Store) LoadWord(addr int) (int64, error) {
	if err := s.checkRange("load_word", addr, 4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(s.bytes[addr : addr+4])
	return int64(int32(v)), nil
}

// LoadDouble reads 8 bytes at addr, big-endian.
func (s *Store) LoadDouble(addr int) (int64, error) {
	if err := s.checkRange("load_double", addr, 8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(s.bytes[addr : addr+8])
	return int64(v), nil
}

// StoreWord writes the low 32 bits of value at addr, big-endian.
func (s *Store) StoreWord(addr int, value int64) error {
	if err := s.checkRange("store_word", addr, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(s.bytes[addr:addr+4], uint32(value))
	return nil
}

// StoreDouble writes all 64 bits of value at addr, big-endian.
func (s *Store) StoreDouble(addr int, value int64) error {
	if err := s.checkRange("store_double", addr, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(s.bytes[addr:addr+8], uint64(value))
	return nil
}

// Load reads either a word or a double depending on isDouble.
func (s *Store) Load(addr int, isDouble bool) (int64, error) {
	if isDouble {
		return s.LoadDouble(addr)
	}
	return s.LoadWord(addr)
}

// StoreAt writes either a word or a double depending on isDouble.
func (s *Store) StoreAt(addr int, value int64, isDouble bool) error {
	if isDouble {
		return s.StoreDouble(addr, value)
	}
	return s.StoreWord(addr, value)
}

// Clone returns a by-value deep copy, used when taking a snapshot.
func (s *Store) Clone() *Store {
	cp := make([]byte, len(s.bytes))
	copy(cp, s.bytes)
	return &Store{bytes: cp}
}

// Restore overwrites this store's contents from another snapshot in place.
func (s *Store) Restore(other *Store) {
	s.bytes = make([]byte, len(other.bytes))
	copy(s.bytes, other.bytes)
}
