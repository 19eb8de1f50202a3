// Package safe is a deduplicated blob cache for cover images and backend
// payloads. Blobs live in files under a root directory addressed by their
// sha256; metadata and names live in badger; recently used blobs stay in
// memory.
package safe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrInvalidHash     = errors.New("invalid content hash")
)

const (
	blobPrefix = "blob/"
	namePrefix = "name/"
)

// Blob describes one stored blob.
type Blob struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	StoredSize int64     `json:"stored_size"`
	RefCount   uint32    `json:"ref_count"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

type Safe struct {
	root  string
	db    *badger.DB
	cache *lru.Cache[string, []byte]
	comp  *compressor
}

type Options struct {
	Root string
	// CacheSize is the number of blobs kept in memory. Defaults to 128.
	CacheSize   int
	Compression CompressionOptions
}

func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	if opts.Compression.Level == 0 {
		opts.Compression = DefaultCompressionOptions()
	}
	comp, err := newCompressor(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}

	return &Safe{root: opts.Root, db: db, cache: cache, comp: comp}, nil
}

// Store saves content and returns its hash. Storing content that is already
// present only takes another reference. name decides whether the content is
// worth compressing.
func (s *Safe) Store(name string, content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}
	hash := sum(content)

	err := s.db.Update(func(txn *badger.Txn) error {
		return s.retain(txn, hash, name, content)
	})
	if err != nil {
		return "", err
	}
	s.cache.Add(hash, content)
	return hash, nil
}

// retain adds a reference to hash, writing the blob file first when the
// blob is new.
func (s *Safe) retain(txn *badger.Txn, hash, name string, content []byte) error {
	blob, err := getBlob(txn, hash)
	switch {
	case err == nil:
		blob.RefCount++
		return putBlob(txn, blob)
	case !errors.Is(err, ErrContentNotFound):
		return err
	}

	stored, compressed := s.comp.compress(name, content)
	path := s.contentPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating content directory: %w", err)
	}
	if err := os.WriteFile(path, stored, 0644); err != nil {
		return fmt.Errorf("writing content file: %w", err)
	}

	now := time.Now()
	blob = Blob{
		Hash:       hash,
		Size:       int64(len(content)),
		StoredSize: int64(len(stored)),
		RefCount:   1,
		Compressed: compressed,
		CreatedAt:  now,
		AccessedAt: now,
	}
	if err := putBlob(txn, blob); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Get returns the content with the given hash.
func (s *Safe) Get(hash string) ([]byte, error) {
	if !validHash(hash) {
		return nil, ErrInvalidHash
	}
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	var content []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		blob, err := getBlob(txn, hash)
		if err != nil {
			return err
		}

		content, err = s.readFile(blob)
		if err != nil {
			return err
		}
		blob.AccessedAt = time.Now()
		return putBlob(txn, blob)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Add(hash, content)
	return content, nil
}

func (s *Safe) readFile(blob Blob) ([]byte, error) {
	data, err := os.ReadFile(s.contentPath(blob.Hash))
	if os.IsNotExist(err) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	if blob.Compressed {
		if data, err = s.comp.decompress(data); err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
	}
	if sum(data) != blob.Hash {
		return nil, fmt.Errorf("content %s is corrupt", blob.Hash)
	}
	return data, nil
}

func (s *Safe) Meta(hash string) (Blob, error) {
	if !validHash(hash) {
		return Blob{}, ErrInvalidHash
	}
	var blob Blob
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		blob, err = getBlob(txn, hash)
		return err
	})
	return blob, err
}

func (s *Safe) Exists(hash string) (bool, error) {
	if !validHash(hash) {
		return false, ErrInvalidHash
	}
	if s.cache.Contains(hash) {
		return true, nil
	}

	_, err := s.Meta(hash)
	if errors.Is(err, ErrContentNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete drops one reference to hash and removes the blob at zero.
func (s *Safe) Delete(hash string) error {
	if !validHash(hash) {
		return ErrInvalidHash
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.release(txn, hash)
	})
}

func (s *Safe) release(txn *badger.Txn, hash string) error {
	blob, err := getBlob(txn, hash)
	if err != nil {
		return err
	}

	if blob.RefCount > 1 {
		blob.RefCount--
		return putBlob(txn, blob)
	}

	if err := txn.Delete(blobKey(hash)); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	if err := os.Remove(s.contentPath(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing content file: %w", err)
	}
	s.cache.Remove(hash)
	return nil
}

// Put stores content under name, releasing what name pointed at before.
func (s *Safe) Put(name string, content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}
	hash := sum(content)

	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := resolve(txn, name)
		if err != nil && !errors.Is(err, ErrContentNotFound) {
			return err
		}
		if err := s.retain(txn, hash, name, content); err != nil {
			return err
		}
		if err := txn.Set(nameKey(name), []byte(hash)); err != nil {
			return fmt.Errorf("storing name: %w", err)
		}
		if old != "" {
			return s.release(txn, old)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.cache.Add(hash, content)
	return hash, nil
}

// Lookup returns the content stored under name.
func (s *Safe) Lookup(name string) ([]byte, error) {
	var hash string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		hash, err = resolve(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(hash)
}

// Forget drops name and releases its content.
func (s *Safe) Forget(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		hash, err := resolve(txn, name)
		if err != nil {
			return err
		}
		if err := txn.Delete(nameKey(name)); err != nil {
			return fmt.Errorf("deleting name: %w", err)
		}
		return s.release(txn, hash)
	})
}

func (s *Safe) contentPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

func resolve(txn *badger.Txn, name string) (string, error) {
	item, err := txn.Get(nameKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrContentNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

func getBlob(txn *badger.Txn, hash string) (Blob, error) {
	var blob Blob
	item, err := txn.Get(blobKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return blob, ErrContentNotFound
	}
	if err != nil {
		return blob, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &blob)
	})
	return blob, err
}

func putBlob(txn *badger.Txn, blob Blob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	if err := txn.Set(blobKey(blob.Hash), data); err != nil {
		return fmt.Errorf("storing metadata: %w", err)
	}
	return nil
}

func blobKey(hash string) []byte { return []byte(blobPrefix + hash) }
func nameKey(name string) []byte { return []byte(namePrefix + name) }

func sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func validHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
