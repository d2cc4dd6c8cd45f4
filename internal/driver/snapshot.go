package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"prism/internal/scope"
)

// Current schema version - increment when Snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// Digest is a sha256 content hash keying cached snapshots.
type Digest [sha256.Size]byte

// HashContent derives the cache key for a file's content.
func HashContent(data []byte) Digest {
	return sha256.Sum256(data)
}

// SnapshotNode is one scope node flattened for the wire: kind,
// portion, parent link and range in offsets.
type SnapshotNode struct {
	Kind     uint8
	Portion  uint8
	Parent   uint32
	Start    uint32
	End      uint32
	HasRange bool
}

// Snapshot is the cached scope map of one file.
type Snapshot struct {
	Schema uint16
	Path   string
	Nodes  []SnapshotNode
}

// Capture materializes the tree and flattens it into a snapshot.
func Capture(tree *scope.Tree, path string) *Snapshot {
	tree.ExpandAll()
	snap := &Snapshot{Schema: snapshotSchemaVersion, Path: path}
	for id := scope.NodeID(1); id <= scope.NodeID(tree.Len()); id++ {
		n, ok := tree.Get(id)
		if !ok {
			break
		}
		sp := tree.Range(id)
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			Kind:     uint8(n.Kind),
			Portion:  uint8(n.Portion),
			Parent:   uint32(n.Parent),
			Start:    sp.Start,
			End:      sp.End,
			HasRange: sp.IsValid(),
		})
	}
	return snap
}

// Diff lists indices of nodes that differ from old, including nodes
// only one side has. Empty means the scope maps match.
func (s *Snapshot) Diff(old *Snapshot) []int {
	var out []int
	n := len(s.Nodes)
	if len(old.Nodes) > n {
		n = len(old.Nodes)
	}
	for i := 0; i < n; i++ {
		if i >= len(s.Nodes) || i >= len(old.Nodes) || s.Nodes[i] != old.Nodes[i] {
			out = append(out, i)
		}
	}
	return out
}

// SnapshotCache stores scope snapshots keyed by content digest on
// disk. Thread-safe for concurrent access.
type SnapshotCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenSnapshotCache initializes a cache at the standard user cache
// location for the given app name.
func OpenSnapshotCache(app string) (*SnapshotCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenSnapshotCacheAt(filepath.Join(base, app))
}

// OpenSnapshotCacheAt initializes a cache rooted at dir.
func OpenSnapshotCacheAt(dir string) (*SnapshotCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SnapshotCache{dir: dir}, nil
}

func (c *SnapshotCache) pathFor(key Digest) string {
	// "scopes" subdirectory keeps the cache root listable.
	return filepath.Join(c.dir, "scopes", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a snapshot, replacing atomically.
func (c *SnapshotCache) Put(key Digest, snap *Snapshot) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a snapshot. The boolean reports whether the key was
// present with a matching schema; a stale schema reads as a miss.
func (c *SnapshotCache) Get(key Digest, out *Snapshot) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != snapshotSchemaVersion {
		return false, nil
	}
	return true, nil
}
