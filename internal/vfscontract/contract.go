// Package vfscontract is the generic virtual-filesystem contract the
// storage engine is deliberately insulated from (spec.md §1): a rooted
// tree of named nodes, folders and files, with copy/move helpers that work
// against the interfaces alone. Any backend — this engine's single-file
// store or something else entirely — can satisfy it.
package vfscontract

import "io/fs"

// Node is the minimal identity every tree entry shares.
type Node interface {
	Name() string
	IsFolder() bool
}

// File is a leaf node holding a byte sequence.
type File interface {
	Node
	Size() (int64, error)
	Read() ([]byte, error)
	Write(data []byte) error
	Remove() error
}

// Folder is an interior node holding named children.
type Folder interface {
	Node
	ListFolder() ([]Node, error)
	ChildFolder(name string) (Folder, error)
	ChildFile(name string) (File, error)
	CreateFile(name string) (File, error)
	CreateFolder(name string) (Folder, error)
	Remove(recursive bool) error
}

// ErrExists is returned by CopyNode when dst already holds a node of the
// same kind as src (a file for a file, a folder for a folder) under name and
// overwrite is false. A node of the other kind is not checked here; the
// error dst's CreateFile/CreateFolder returns for it is passed through
// instead. Callers typically translate this into their own taxonomy's
// FileExists kind.
var ErrExists = fs.ErrExist

// CopyNode copies src into dst under name, recursing into folders. It
// knows nothing about filesystem identity — callers that must reject
// cross-filesystem operands do that check before calling in.
func CopyNode(src Node, dst Folder, name string, overwrite bool) (Node, error) {
	if file, ok := src.(File); ok {
		return copyFile(file, dst, name, overwrite)
	}
	folder, ok := src.(Folder)
	if !ok {
		return nil, fs.ErrInvalid
	}
	return copyFolder(folder, dst, name, overwrite)
}

func copyFile(src File, dst Folder, name string, overwrite bool) (Node, error) {
	if existing, err := dst.ChildFile(name); err == nil {
		if !overwrite {
			return nil, ErrExists
		}
		if err := existing.Remove(); err != nil {
			return nil, err
		}
	}

	data, err := src.Read()
	if err != nil {
		return nil, err
	}

	dstFile, err := dst.CreateFile(name)
	if err != nil {
		return nil, err
	}
	if err := dstFile.Write(data); err != nil {
		return nil, err
	}
	return dstFile, nil
}

func copyFolder(src Folder, dst Folder, name string, overwrite bool) (Node, error) {
	if existing, err := dst.ChildFolder(name); err == nil {
		if !overwrite {
			return nil, ErrExists
		}
		if err := existing.Remove(true); err != nil {
			return nil, err
		}
	}

	dstFolder, err := dst.CreateFolder(name)
	if err != nil {
		return nil, err
	}

	children, err := src.ListFolder()
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if _, err := CopyNode(child, dstFolder, child.Name(), overwrite); err != nil {
			return nil, err
		}
	}
	return dstFolder, nil
}

// MoveNode copies src into dst under name and then removes src. A
// caller-supplied remove closure lets the caller decide how the source is
// detached (e.g. only from its direct parent, recursively for folders).
func MoveNode(src Node, removeSrc func() error, dst Folder, name string, overwrite bool) (Node, error) {
	moved, err := CopyNode(src, dst, name, overwrite)
	if err != nil {
		return nil, err
	}
	if err := removeSrc(); err != nil {
		return nil, err
	}
	return moved, nil
}
