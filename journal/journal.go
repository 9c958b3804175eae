package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	bolt "go.etcd.io/bbolt"
)

// MaxEntries is the number of runs kept per project.
const MaxEntries = 100

// Path returns a unique local journal file path for the given project root, using its SHA-256 hash.
func Path(root string) (string, error) {
	digest := sha256.Sum256([]byte(root))

	name := hex.EncodeToString(digest[:])

	path, err := xdg.CacheFile(fmt.Sprintf("changefmt/journal/%v.db", name))
	if err != nil {
		return "", fmt.Errorf("could not resolve local path for the journal: %w", err)
	}

	return path, nil
}

// Journal is a record of past runs for a single project.
type Journal struct {
	db  *bolt.DB
	log *log.Logger
}

// Open initialises and opens the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db at %s: %w", path, err)
	}

	// ensure bucket exist
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := BucketRuns(tx)
		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Journal{
		db:  db,
		log: log.WithPrefix("journal"),
	}, nil
}

// OpenProject opens the journal belonging to the given project root.
func OpenProject(root string) (*Journal, error) {
	path, err := Path(root)
	if err != nil {
		return nil, err
	}

	return Open(path)
}

func (j *Journal) Close() error {
	return j.db.Close() //nolint:wrapcheck
}

// Record appends entry, assigning its sequence number, and trims the journal to MaxEntries.
func (j *Journal) Record(entry *Entry) error {
	return j.db.Update(func(tx *bolt.Tx) error { //nolint:wrapcheck
		runs, err := BucketRuns(tx)
		if err != nil {
			return err
		}

		if entry.Sequence, err = runs.Append(entry); err != nil {
			return err
		}

		j.log.Debugf("recorded run %d", entry.Sequence)

		return runs.Trim(MaxEntries)
	})
}

// Last returns up to n entries, newest first.
func (j *Journal) Last(n int) ([]*Entry, error) {
	var entries []*Entry

	if n <= 0 {
		return entries, nil
	}

	err := j.db.View(func(tx *bolt.Tx) error {
		runs, err := BucketRuns(tx)
		if err != nil {
			return err
		}

		return runs.Reverse(func(seq uint64, entry *Entry) (bool, error) {
			entry.Sequence = seq
			entries = append(entries, entry)

			return len(entries) < n, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return entries, nil
}
