package vfs

import (
	"errors"

	"filevfs/internal/engine"
	"filevfs/internal/vfscontract"
)

// fsOf reports the owning FS of a node produced by this package, or nil if
// src was not produced by any *vfs.FS at all.
func fsOf(node vfscontract.Node) *FS {
	switch n := node.(type) {
	case *File:
		return n.fs
	case *Folder:
		return n.fs
	default:
		return nil
	}
}

func pathOf(node vfscontract.Node) string {
	switch n := node.(type) {
	case *File:
		return n.path
	case *Folder:
		return n.path
	default:
		return ""
	}
}

// Copy implements spec.md §4.4's copy: both src and dst must belong to fs,
// same-path copies are a no-op, and a colliding destination name fails
// with FileExists unless overwrite is set. Overwrite replaces an existing
// node of the same kind as src only; a node of the other kind under that
// name still fails with FileExists.
func (fs *FS) Copy(src vfscontract.Node, dst *Folder, name string, overwrite bool) (vfscontract.Node, error) {
	if fsOf(src) != fs || dst.fs != fs {
		return nil, engine.New(engine.CrossFSOperation, name, "source or destination does not belong to this filesystem")
	}
	if pathOf(src) == joinPath(dst.path, name) {
		return src, nil
	}

	result, err := vfscontract.CopyNode(src, dst, name, overwrite)
	if err != nil {
		return nil, translateContractError(err, joinPath(dst.path, name))
	}
	return result, nil
}

// Move implements spec.md §4.4's move: a Copy followed by removing src.
func (fs *FS) Move(src vfscontract.Node, dst *Folder, name string, overwrite bool) (vfscontract.Node, error) {
	if fsOf(src) != fs || dst.fs != fs {
		return nil, engine.New(engine.CrossFSOperation, name, "source or destination does not belong to this filesystem")
	}
	if pathOf(src) == joinPath(dst.path, name) {
		return src, nil
	}

	removeSrc := func() error {
		switch n := src.(type) {
		case *File:
			return n.Remove()
		case *Folder:
			return n.Remove(true)
		default:
			return engine.New(engine.InternalError, name, "unrecognized node type")
		}
	}

	result, err := vfscontract.MoveNode(src, removeSrc, dst, name, overwrite)
	if err != nil {
		return nil, translateContractError(err, joinPath(dst.path, name))
	}
	return result, nil
}

func translateContractError(err error, path string) error {
	if errors.Is(err, vfscontract.ErrExists) || engine.Is(err, engine.NodeExists) {
		return engine.New(engine.FileExists, path, "destination already exists")
	}
	return err
}
