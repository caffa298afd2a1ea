// Package flat provides an exact nearest-neighbour vector index that is
// persisted as a single checksummed file per document.
//
// Every document gets a directory under the index root. The index file
// inside it is replaced atomically with a write-to-temp and rename, so a
// reader never observes a partially written index.
package flat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// FileName is the name of the index file inside a document's location.
const FileName = "index.dqv"

// Index builds, persists and loads flat cosine-similarity indexes.
type Index struct {
	root string
}

// New creates an index manager storing document indexes under root.
func New(root string) *Index {
	return &Index{root: root}
}

// Location returns the directory holding a document's index.
func (x *Index) Location(documentID string) string {
	return filepath.Join(x.root, documentID)
}

// Build normalises the chunk vectors and returns a searchable handle.
func (x *Index) Build(chunks []domain.Chunk) (driven.IndexHandle, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyInput
	}

	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: chunk 0 has no embedding", domain.ErrInvalidInput)
	}

	h := &handle{
		dim:       dim,
		positions: make([]int, len(chunks)),
		texts:     make([]string, len(chunks)),
		vectors:   make([][]float32, len(chunks)),
	}
	for i, c := range chunks {
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				domain.ErrInvalidInput, i, len(c.Embedding), dim)
		}
		h.positions[i] = c.Position
		h.texts[i] = c.Content
		h.vectors[i] = normalise(c.Embedding)
	}
	return h, nil
}

// Persist writes the handle to location. The previous index, if any, stays
// in place until the new one has been fully written and synced.
func (x *Index) Persist(ctx context.Context, ih driven.IndexHandle, location string) (err error) {
	h, ok := ih.(*handle)
	if !ok || h == nil {
		return fmt.Errorf("%w: handle was not built by this index", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(location, 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp, err := os.CreateTemp(location, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = encode(w, h); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(location, FileName)); err != nil {
		return fmt.Errorf("publishing index: %w", err)
	}
	if err = syncDir(location); err != nil {
		return fmt.Errorf("syncing index directory: %w", err)
	}
	return nil
}

// syncDir flushes a directory entry so a completed rename survives a crash.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// Load reads the index persisted at location.
func (x *Index) Load(ctx context.Context, location string) (driven.IndexHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if location == "" {
		return nil, fmt.Errorf("%w: empty index location", domain.ErrNotFound)
	}

	data, err := os.ReadFile(filepath.Join(location, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index at %s: %w", location, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	h, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("index at %s: %w", location, err)
	}
	return h, nil
}

// handle is an immutable in-memory index. Vectors are unit length.
type handle struct {
	dim       int
	positions []int
	texts     []string
	vectors   [][]float32
}

func (h *handle) Len() int {
	return len(h.texts)
}

func (h *handle) Dimensions() int {
	return h.dim
}

// Search scores every entry by dot product against the normalised query.
// Equal scores are ordered by chunk position.
func (h *handle) Search(query []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(query), h.dim)
	}

	q := normalise(query)
	scores := make([]float64, len(h.vectors))
	for i, v := range h.vectors {
		scores[i] = dot(v, q)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return h.positions[ia] < h.positions[ib]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]domain.RetrievedChunk, k)
	for i := 0; i < k; i++ {
		j := order[i]
		results[i] = domain.RetrievedChunk{
			Position: h.positions[j],
			Content:  h.texts[j],
			Score:    scores[j],
		}
	}
	return results, nil
}

func normalise(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
