package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// Batch is a shard that has been published into the output directory.
type Batch struct {
	Path    string
	Rows    int
	GameIDs []string
}

// BatchWriter appends whole games to a parquet shard under dir/tmp. Once the
// shard holds perBatch games it is moved into dir, so a reader globbing dir
// only ever sees complete shards.
type BatchWriter[T any] struct {
	dir      string
	schema   string
	perBatch int
	open     *shard[T]
}

type shard[T any] struct {
	name string
	file *os.File
	w    *parquet.GenericWriter[T]
	rows int
	ids  []string
}

func NewBatchWriter[T any](dir, schema string, perBatch int) (*BatchWriter[T], error) {
	if dir == "" {
		return nil, errors.New("batch writer: dir is required")
	}
	if perBatch < 1 {
		return nil, fmt.Errorf("batch writer: games per batch must be positive, got %d", perBatch)
	}
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	return &BatchWriter[T]{dir: dir, schema: schema, perBatch: perBatch}, nil
}

// Pending reports the games written to the open shard.
func (b *BatchWriter[T]) Pending() int {
	if b.open == nil {
		return 0
	}
	return len(b.open.ids)
}

// AddGame appends one game. When that fills the shard, the published batch
// is returned; otherwise the batch is nil. Games with no rows are skipped.
// A failed write drops the open shard along with the games already in it.
func (b *BatchWriter[T]) AddGame(id string, rows []T) (*Batch, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if b.open == nil {
		s, err := b.newShard()
		if err != nil {
			return nil, err
		}
		b.open = s
	}
	if _, err := b.open.w.Write(rows); err != nil {
		b.discard()
		return nil, fmt.Errorf("write game %s: %w", id, err)
	}
	b.open.rows += len(rows)
	b.open.ids = append(b.open.ids, id)

	if len(b.open.ids) < b.perBatch {
		return nil, nil
	}
	return b.Flush()
}

// Flush publishes the open shard, if any. On error the shard is discarded.
func (b *BatchWriter[T]) Flush() (*Batch, error) {
	s := b.open
	if s == nil {
		return nil, nil
	}
	b.open = nil

	tmpPath := filepath.Join(b.dir, "tmp", s.name)
	err := s.w.Close()
	if syncErr := s.file.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("close %s: %w", s.name, err)
	}

	outPath := filepath.Join(b.dir, s.name)
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("rename parquet: %w", err)
	}
	return &Batch{Path: outPath, Rows: s.rows, GameIDs: s.ids}, nil
}

func (b *BatchWriter[T]) newShard() (*shard[T], error) {
	name := batchName()
	f, err := os.OpenFile(filepath.Join(b.dir, "tmp", name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	return &shard[T]{
		name: name,
		file: f,
		w:    parquet.NewGenericWriter[T](f, writerOptions(b.schema)...),
	}, nil
}

func (b *BatchWriter[T]) discard() {
	s := b.open
	b.open = nil
	_ = s.w.Close()
	_ = s.file.Close()
	_ = os.Remove(filepath.Join(b.dir, "tmp", s.name))
}
