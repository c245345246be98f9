package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StorageEngine owns the RWLock, the backing file path, and the one-shot
// initialization flag described in spec.md §4.3. All tree-level mutation
// and navigation logic lives here; FileController stays unaware of
// filesystem semantics.
type StorageEngine struct {
	path   string
	lock   *RWLock
	config *EngineConfig
	logger *Logger

	initMu      sync.Mutex
	initialized bool

	watcher *backingFileWatcher
}

// Open constructs a StorageEngine for the backing file at cfg.BackingFilePath.
// It does not touch the file yet — initialization happens lazily on the
// first write-locked operation, per spec.md §4.3.
func Open(cfg *EngineConfig, logger *Logger) (*StorageEngine, error) {
	if cfg.BackingFilePath == "" {
		return nil, New(InternalError, "", "backing file path is required")
	}

	eng := &StorageEngine{
		path:   cfg.BackingFilePath,
		lock:   NewRWLock(),
		config: cfg,
		logger: logger,
	}

	if cfg.WatchBackingFile {
		w, err := newBackingFileWatcher(cfg.BackingFilePath, logger)
		if err != nil {
			logger.Warn("engine", fmt.Sprintf("backing file watch disabled: %v", err))
		} else {
			eng.watcher = w
		}
	}

	return eng, nil
}

func (e *StorageEngine) Close() {
	if e.watcher != nil {
		e.watcher.stop()
	}
}

// opID is a logging-only correlation id, per SPEC_FULL.md §4.5. It is
// never written to the backing file.
func opID() string {
	return uuid.New().String()[:8]
}

// WithReadLock acquires read-mode, opens a read-only FileController, runs
// op, and releases everything on every exit path.
func (e *StorageEngine) WithReadLock(ctx context.Context, op func(fc *FileController) error) error {
	id := opID()
	if err := e.lock.RLock(ctx); err != nil {
		return Internal(e.path, err)
	}
	defer e.lock.RUnlock()
	e.logger.Log(id, "read lock acquired")
	defer e.logger.Log(id, "read lock released")

	fc, err := openFileController(e.path, false)
	if err != nil {
		return err
	}
	defer fc.Close()

	return op(fc)
}

// WithWriteLock acquires write-mode, opens a read/write FileController,
// performs one-shot initialization if needed, runs op, then runs
// Defragment before releasing, per spec.md §4.3.
func (e *StorageEngine) WithWriteLock(ctx context.Context, op func(fc *FileController) error) error {
	id := opID()
	if err := e.lock.Lock(ctx); err != nil {
		return Internal(e.path, err)
	}
	defer e.lock.Unlock()
	e.logger.Log(id, "write lock acquired")
	defer e.logger.Log(id, "write lock released")

	fc, err := openFileController(e.path, true)
	if err != nil {
		return err
	}
	defer fc.Close()

	if err := e.ensureInitialized(fc); err != nil {
		return err
	}

	if err := op(fc); err != nil {
		return err
	}

	if err := e.Defragment(fc); err != nil {
		e.logger.Error(id, fmt.Sprintf("defragmentation failed: %v", err))
		return err
	}
	return nil
}

func (e *StorageEngine) ensureInitialized(fc *FileController) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.initialized {
		return nil
	}

	size, err := fc.Size()
	if err != nil {
		return err
	}

	if size == 0 {
		if _, err := fc.Position(0); err != nil {
			return err
		}
		if _, err := fc.PutReference(MarkFolder, refSize); err != nil {
			return err
		}
		if _, err := fc.PutFolderFragment(Reference{Position: 0, DataPosition: refSize, Mark: MarkFolder}, "", 0, nil, nil); err != nil {
			return err
		}
	}

	e.initialized = true
	return nil
}

// splitPath turns an absolute "/a/b/c" style path into ["a","b","c"],
// tolerating a missing leading slash and collapsing empty segments.
func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// Navigate walks from the root fragment following path in order, failing
// with NodeNotFound the first time a part has no matching child. It
// returns the final fragment, which may be a file or a folder.
func (e *StorageEngine) Navigate(fc *FileController, path string) (*Fragment, error) {
	root, err := fc.ReadFragmentAt(0, nil)
	if err != nil {
		return nil, err
	}

	parts := splitPath(path)
	current := root
	consumed := ""

	for _, part := range parts {
		if current.Folder == nil {
			return nil, New(NodeNotFound, consumed, "parent is not a folder")
		}

		var match *Fragment
		for _, childRef := range current.Folder.Children {
			child, err := fc.ReadFragment(childRef, current)
			if err != nil {
				return nil, err
			}
			if child.Name() == part {
				match = child
				break
			}
		}
		if match == nil {
			return nil, New(NodeNotFound, filepath.Join(consumed, part), "no child with this name")
		}
		current = match
		consumed = filepath.Join(consumed, part)
	}

	return current, nil
}

// ExistsCheck fails with NodeExists if path already resolves to a node,
// and returns cleanly if it resolves to NodeNotFound. Any other
// navigation failure propagates unchanged.
func (e *StorageEngine) ExistsCheck(fc *FileController, path string) error {
	_, err := e.Navigate(fc, path)
	if err == nil {
		return New(NodeExists, path, "a node with this name already exists")
	}
	if Is(err, NodeNotFound) {
		return nil
	}
	return err
}

// AddChild implements spec.md §4.3's add_child: the parent's record grows
// by one reference, which never fits in place, so it is appended to
// end-of-file and the parent's external reference is redirected to it.
// The parent's own growth is then propagated upward.
func (e *StorageEngine) AddChild(fc *FileController, parent, child *Fragment) (*Fragment, error) {
	if parent.Folder == nil {
		return nil, New(InternalError, parent.Name(), "cannot add a child to a non-folder")
	}

	oldTotal := parent.TotalSizeBytes()

	newChildren := make([]Reference, len(parent.Folder.Children)+1)
	copy(newChildren, parent.Folder.Children)
	newChildren[len(parent.Folder.Children)] = child.Reference

	newUsedSpace := parent.Folder.ChildrenUsedSpace + child.TotalSizeBytes()

	endOfFile, err := fc.Size()
	if err != nil {
		return nil, err
	}

	newParentFrag, err := fc.PutFolderFragment(
		Reference{Position: parent.Reference.Position, DataPosition: endOfFile, Mark: MarkFolder},
		parent.Folder.Name, newUsedSpace, newChildren, parent.Parent,
	)
	if err != nil {
		return nil, err
	}

	if _, err := fc.Position(parent.Reference.Position); err != nil {
		return nil, err
	}
	if _, err := fc.PutReference(MarkFolder, endOfFile); err != nil {
		return nil, err
	}

	delta := newParentFrag.TotalSizeBytes() - oldTotal
	if delta != 0 && parent.Parent != nil {
		if err := fc.PropagateUsedSpaceChange(parent.Parent, delta); err != nil {
			return nil, err
		}
	}

	return newParentFrag, nil
}

// RemoveChild implements spec.md §4.3's remove_child: exactly one
// reference to child (matched by equal DataPosition) is dropped, and
// because the resulting record is strictly smaller it is rewritten in
// place at the parent's own data position — the parent's external
// reference never changes.
func (e *StorageEngine) RemoveChild(fc *FileController, parent, child *Fragment) (*Fragment, error) {
	if parent.Folder == nil {
		return nil, New(InternalError, parent.Name(), "cannot remove a child from a non-folder")
	}

	oldTotal := parent.TotalSizeBytes()

	newChildren := make([]Reference, 0, len(parent.Folder.Children))
	removed := false
	for _, ref := range parent.Folder.Children {
		if !removed && ref.DataPosition == child.Reference.DataPosition {
			removed = true
			continue
		}
		newChildren = append(newChildren, ref)
	}
	if !removed {
		return nil, New(InternalError, parent.Name(), "child reference not found in parent")
	}

	newUsedSpace := parent.Folder.ChildrenUsedSpace - child.TotalSizeBytes()

	newParentFrag, err := fc.PutFolderFragment(
		Reference{Position: parent.Reference.Position, DataPosition: parent.Reference.DataPosition, Mark: MarkFolder},
		parent.Folder.Name, newUsedSpace, newChildren, parent.Parent,
	)
	if err != nil {
		return nil, err
	}

	delta := newParentFrag.TotalSizeBytes() - oldTotal
	if delta != 0 && parent.Parent != nil {
		if err := fc.PropagateUsedSpaceChange(parent.Parent, delta); err != nil {
			return nil, err
		}
	}

	return newParentFrag, nil
}
