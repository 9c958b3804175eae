package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

const bucketRuns = "runs"

var ErrKeyNotFound = errors.New("key not found")

// Bucket stores msgpack encoded values under sequence keys, so iteration follows insertion order.
type Bucket[V any] struct {
	bucket *bolt.Bucket
}

func (b *Bucket[V]) Size() int {
	size := 0

	c := b.bucket.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		size++
	}

	return size
}

// Append stores value under the next sequence number, which is returned.
func (b *Bucket[V]) Append(value *V) (uint64, error) {
	seq, err := b.bucket.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate journal sequence: %w", err)
	}

	if bytes, err := msgpack.Marshal(value); err != nil {
		return 0, fmt.Errorf("failed to marshal journal entry %d: %w", seq, err)
	} else if err = b.bucket.Put(key(seq), bytes); err != nil {
		return 0, fmt.Errorf("failed to put journal entry %d: %w", seq, err)
	}

	return seq, nil
}

// Reverse calls f with each value, newest first, until f returns false or an error.
func (b *Bucket[V]) Reverse(f func(uint64, *V) (bool, error)) error {
	c := b.bucket.Cursor()
	for k, bytes := c.Last(); k != nil; k, bytes = c.Prev() {
		var value V
		if err := msgpack.Unmarshal(bytes, &value); err != nil {
			return fmt.Errorf("failed to unmarshal journal entry %d: %w", binary.BigEndian.Uint64(k), err)
		}

		if more, err := f(binary.BigEndian.Uint64(k), &value); err != nil || !more {
			return err
		}
	}

	return nil
}

// Trim removes the oldest entries until at most keep remain.
func (b *Bucket[V]) Trim(keep int) error {
	var stale [][]byte

	excess := b.Size() - keep

	c := b.bucket.Cursor()
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, k)
	}

	for _, k := range stale {
		if err := b.bucket.Delete(k); err != nil {
			return fmt.Errorf("failed to remove journal entry %d: %w", binary.BigEndian.Uint64(k), err)
		}
	}

	return nil
}

func BucketRuns(tx *bolt.Tx) (*Bucket[Entry], error) {
	return journalBucket[Entry](bucketRuns, tx)
}

func journalBucket[V any](name string, tx *bolt.Tx) (*Bucket[V], error) {
	var (
		err error
		b   *bolt.Bucket
	)

	if tx.Writable() {
		b, err = tx.CreateBucketIfNotExists([]byte(name))
	} else {
		b = tx.Bucket([]byte(name))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get/create bucket %s: %w", name, err)
	} else if b == nil {
		return nil, fmt.Errorf("%w: bucket %s", ErrKeyNotFound, name)
	}

	return &Bucket[V]{b}, nil
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)

	return k
}
