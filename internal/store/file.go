package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

const (
	itemsFileName = "items.json"
	locksDirName  = ".locks"
)

// File stores every item in one JSON document under dir. Writers serialize
// on a flock; the document is replaced atomically so readers never see a
// partial write.
type File struct {
	dir     string
	timeout time.Duration
	now     func() time.Time
}

type fileDocument struct {
	Items []Item `json:"items"`
}

// OpenFile prepares dir for use as a file repository.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	return &File{dir: dir, timeout: LockTimeout, now: time.Now}, nil
}

// Path is the JSON document backing the repository.
func (f *File) Path() string { return filepath.Join(f.dir, itemsFileName) }

// lockPath lives in a subdirectory so lock churn does not touch dir's mtime.
func (f *File) lockPath() string {
	return filepath.Join(f.dir, locksDirName, itemsFileName+".lock")
}

func (f *File) read() ([]Item, error) {
	content, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path(), err)
	}

	return doc.Items, nil
}

func (f *File) write(items []Item) error {
	sortItems(items)

	content, err := json.MarshalIndent(fileDocument{Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	content = append(content, '\n')

	if err := atomic.WriteFile(f.Path(), bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing items: %w", err)
	}

	return nil
}

// update runs fn on the current items under the lock and writes the result
// back unless fn fails.
func (f *File) update(ctx context.Context, fn func([]Item) ([]Item, error)) error {
	return withLock(f.lockPath(), f.timeout, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := f.read()
		if err != nil {
			return err
		}

		items, err = fn(items)
		if err != nil {
			return err
		}

		return f.write(items)
	})
}

func (f *File) List(ctx context.Context, filter Filter) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := f.read()
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(items))

	for _, it := range items {
		if filter.match(it) {
			out = append(out, it)
		}
	}

	sortItems(out)

	return out, nil
}

func (f *File) Get(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	items, err := f.read()
	if err != nil {
		return Item{}, err
	}

	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}

	return Item{}, ErrNotFound
}

func (f *File) Save(ctx context.Context, item Item) (Item, error) {
	stamped := item.CreatedAt.IsZero()

	item, err := prepare(item, f.now())
	if err != nil {
		return Item{}, err
	}

	err = f.update(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ID == item.ID {
				if stamped {
					item.CreatedAt = items[i].CreatedAt
				}

				items[i] = item

				return items, nil
			}
		}

		return append(items, item), nil
	})
	if err != nil {
		return Item{}, err
	}

	return item, nil
}

func (f *File) Delete(ctx context.Context, id string) error {
	return f.update(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}

		return nil, ErrNotFound
	})
}

// Close is a no-op; the file repository holds no open handles between calls.
func (f *File) Close() error { return nil }
