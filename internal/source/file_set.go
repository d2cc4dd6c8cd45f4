package source

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// FileSet registers source files and resolves byte offsets to
// line/column positions for human-readable output.
type FileSet struct {
	files []File
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add registers in-memory content under the given path and returns the
// file's ID. Adding the same path twice returns the existing ID.
func (fs *FileSet) Add(path string, content []byte) (FileID, error) {
	if id, ok := fs.index[path]; ok {
		return id, nil
	}
	raw, err := safecast.Conv[uint32](len(fs.files) + 1)
	if err != nil {
		return NoFileID, fmt.Errorf("file set overflow: %w", err)
	}
	id := FileID(raw)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   FileVirtual,
	})
	fs.index[path] = id
	return id, nil
}

// Get returns the file for an ID or nil if unknown.
func (fs *FileSet) Get(id FileID) *File {
	if !id.IsValid() || int(id) > len(fs.files) {
		return nil
	}
	return &fs.files[id-1]
}

// ByPath returns the ID registered for path, or NoFileID.
func (fs *FileSet) ByPath(path string) FileID {
	return fs.index[path]
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int { return len(fs.files) }

// Resolve maps a position to 1-based line and column. Positions in
// unknown files resolve to the zero LineCol.
func (fs *FileSet) Resolve(p Pos) LineCol {
	f := fs.Get(p.File)
	if f == nil {
		return LineCol{}
	}
	// First line beginning after the offset; the offset's line is the
	// one before it.
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > p.Offset
	})
	if line == 0 {
		return LineCol{Line: 1, Col: p.Offset + 1}
	}
	return LineCol{
		Line: uint32(line) + 1,
		Col:  p.Offset - f.LineIdx[line-1] + 1,
	}
}

// buildLineIndex records the byte offset just past each newline.
func buildLineIndex(content []byte) []uint32 {
	var idx []uint32
	for i, b := range content {
		if b == '\n' {
			idx = append(idx, uint32(i)+1)
		}
	}
	return idx
}
