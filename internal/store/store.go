// Package store persists child items (attachments, subtasks, allocations)
// hung off the entities the backend serves.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("item not found")
	ErrParentRequired = errors.New("parent id required")
	ErrInvalidKind    = errors.New("invalid item kind")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
)

// ItemKind says what a child item is.
type ItemKind string

const (
	Attachment ItemKind = "attachment"
	Subtask    ItemKind = "subtask"
	Allocation ItemKind = "allocation"
)

// ItemKinds lists the valid kinds.
func ItemKinds() []ItemKind { return []ItemKind{Attachment, Subtask, Allocation} }

// ParseItemKind validates name.
func ParseItemKind(name string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(ItemKinds(), k) {
		return "", fmt.Errorf("%w: %q (valid: attachment, subtask, allocation)", ErrInvalidKind, name)
	}

	return k, nil
}

// Item is a child record owned by ParentID.
type Item struct {
	ID        string            `json:"id"`
	ParentID  string            `json:"parent_id"`
	Kind      ItemKind          `json:"kind"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (it Item) clone() Item {
	it.Fields = maps.Clone(it.Fields)

	return it
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	ParentID string
	Kind     ItemKind
}

func (f Filter) match(it Item) bool {
	if f.ParentID != "" && it.ParentID != f.ParentID {
		return false
	}

	return f.Kind == "" || it.Kind == f.Kind
}

// Repository is the storage contract all backends satisfy. List returns
// items ordered by creation time, oldest first.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Save(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and locates a backend.
type Options struct {
	Backend string
	Path    string
}

// Open returns the repository for opts. Path is a directory for the file
// backend and a database file for sqlite; it is ignored for memory.
func Open(ctx context.Context, opts Options) (Repository, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if opts.Path == "" {
			return nil, errors.New("open store: path is empty")
		}

		return OpenFile(filepath.Clean(opts.Path))
	case BackendSQLite:
		if opts.Path == "" {
			return nil, errors.New("open store: path is empty")
		}

		return OpenSQLite(ctx, filepath.Clean(opts.Path))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// prepare validates item and fills ID and CreatedAt when unset.
func prepare(item Item, now time.Time) (Item, error) {
	item.ParentID = strings.TrimSpace(item.ParentID)
	if item.ParentID == "" {
		return Item{}, ErrParentRequired
	}

	kind, err := ParseItemKind(string(item.Kind))
	if err != nil {
		return Item{}, err
	}

	item.Kind = kind

	if item.ID == "" {
		id, err := newID()
		if err != nil {
			return Item{}, err
		}

		item.ID = id
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	item.CreatedAt = item.CreatedAt.UTC()

	return item.clone(), nil
}

func sortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})
}
