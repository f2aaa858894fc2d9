package macro

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

var bucketName = []byte("macros")

// Store persists learned macros in a bolt database, keyed by name.
type Store struct {
	db *bolt.DB
}

// record is the gob-encoded form of a stored macro.
type record struct {
	ID      string
	SavedAt time.Time
	Macro   Macro
}

// OpenStore opens (or creates) the macro database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "MkdirAll")
		}
	}
	db, err := bolt.Open(path, 0o600, bolt.DefaultOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Open")
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "CreateBucketIfNotExists")
	}
	return &Store{db: db}, nil
}

// Save stores the macro under its name, replacing any previous macro
// with that name, and returns the record ID.
func (s *Store) Save(m Macro) (string, error) {
	if m.Name == "" {
		return "", errors.New("macro has no name")
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(err, "GenerateUUID")
	}
	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(record{
		ID:      id,
		SavedAt: time.Now(),
		Macro:   m,
	}); err != nil {
		return "", errors.Wrap(err, "Encode")
	}
	if err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(m.Name), buf.Bytes())
	}); err != nil {
		return "", errors.Wrap(err, "Update")
	}
	return id, nil
}

// Load returns the macro stored under name.
func (s *Store) Load(name string) (Macro, error) {
	var rec record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("macro %q not found", name)
		}
		return gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	})
	if err != nil {
		return Macro{}, errors.Wrap(err, "View")
	}
	return rec.Macro, nil
}

// Names lists the stored macro names, sorted.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "ForEach")
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
