// Package vfs is the facade from spec.md §4.4: FS, Folder and File
// implement the vfscontract interfaces on top of a single StorageEngine,
// translating every operation into a read- or write-locked engine call.
package vfs

import (
	"context"
	"path"
	"strings"

	"filevfs/internal/engine"
	"filevfs/internal/vfscontract"
)

// FS owns one StorageEngine and is the identity copy/move checks compare
// against: a Folder or File only belongs to the FS that produced it.
type FS struct {
	engine *engine.StorageEngine
}

// Open opens (and lazily initializes, on first write) the backing file
// described by cfg.
func Open(cfg *engine.EngineConfig, logger *engine.Logger) (*FS, error) {
	eng, err := engine.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &FS{engine: eng}, nil
}

func (fs *FS) Close() {
	fs.engine.Close()
}

// Root returns a handle to the root folder. The root has the empty name
// and no parent, per spec.md §3's invariant 5.
func (fs *FS) Root() *Folder {
	return &Folder{fs: fs, path: ""}
}

// RepresentPath renders p as a "/"-separated absolute path with a leading
// slash, per spec.md §6.
func (fs *FS) RepresentPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func baseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Folder is a handle to a folder node, identified by its path relative to
// root ("" for root). Handles carry no fragment state: every call
// re-navigates under its own lock, per spec.md §9's fragment-identity note.
type Folder struct {
	fs   *FS
	path string
}

func (f *Folder) Name() string   { return baseName(f.path) }
func (f *Folder) IsFolder() bool { return true }

// Path returns the folder's path relative to root, without a leading slash.
func (f *Folder) Path() string { return f.path }

func (f *Folder) navigate(fc *engine.FileController) (*engine.Fragment, error) {
	frag, err := f.fs.engine.Navigate(fc, f.path)
	if err != nil {
		return nil, engine.AsNotFound(err, true)
	}
	if frag.Folder == nil {
		return nil, engine.New(engine.FolderNotFound, f.path, "node is a file, not a folder")
	}
	return frag, nil
}

// ListFolder returns children in stored insertion order, per spec.md §4.4.
func (f *Folder) ListFolder() ([]vfscontract.Node, error) {
	var out []vfscontract.Node
	err := f.fs.engine.WithReadLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		out = make([]vfscontract.Node, 0, len(frag.Folder.Children))
		for _, childRef := range frag.Folder.Children {
			child, err := fc.ReadFragment(childRef, frag)
			if err != nil {
				return err
			}
			childPath := joinPath(f.path, child.Name())
			if child.Folder != nil {
				out = append(out, &Folder{fs: f.fs, path: childPath})
			} else {
				out = append(out, &File{fs: f.fs, path: childPath})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFile creates an empty file named name under f, per spec.md §4.4.
func (f *Folder) CreateFile(name string) (vfscontract.File, error) {
	childPath := joinPath(f.path, name)
	err := f.fs.engine.WithWriteLock(context.Background(), func(fc *engine.FileController) error {
		parent, err := f.navigate(fc)
		if err != nil {
			return err
		}
		if err := f.fs.engine.ExistsCheck(fc, childPath); err != nil {
			return err
		}

		eof, err := fc.Size()
		if err != nil {
			return err
		}
		childRef := engine.Reference{Position: engine.Intangible, DataPosition: eof, Mark: engine.MarkFile}
		child, err := fc.PutFileFragment(childRef, name, nil, parent)
		if err != nil {
			return err
		}

		_, err = f.fs.engine.AddChild(fc, parent, child)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &File{fs: f.fs, path: childPath}, nil
}

// CreateFolder creates an empty folder named name under f, per spec.md §4.4.
func (f *Folder) CreateFolder(name string) (vfscontract.Folder, error) {
	childPath := joinPath(f.path, name)
	err := f.fs.engine.WithWriteLock(context.Background(), func(fc *engine.FileController) error {
		parent, err := f.navigate(fc)
		if err != nil {
			return err
		}
		if err := f.fs.engine.ExistsCheck(fc, childPath); err != nil {
			return err
		}

		eof, err := fc.Size()
		if err != nil {
			return err
		}
		childRef := engine.Reference{Position: engine.Intangible, DataPosition: eof, Mark: engine.MarkFolder}
		child, err := fc.PutFolderFragment(childRef, name, 0, nil, parent)
		if err != nil {
			return err
		}

		_, err = f.fs.engine.AddChild(fc, parent, child)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Folder{fs: f.fs, path: childPath}, nil
}

// ChildFolder resolves name as an immediate child folder of f.
func (f *Folder) ChildFolder(name string) (vfscontract.Folder, error) {
	childPath := joinPath(f.path, name)
	err := f.fs.engine.WithReadLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.fs.engine.Navigate(fc, childPath)
		if err != nil {
			return engine.AsNotFound(err, true)
		}
		if frag.Folder == nil {
			return engine.New(engine.FolderNotFound, childPath, "node is a file, not a folder")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Folder{fs: f.fs, path: childPath}, nil
}

// ChildFile resolves name as an immediate child file of f.
func (f *Folder) ChildFile(name string) (vfscontract.File, error) {
	childPath := joinPath(f.path, name)
	err := f.fs.engine.WithReadLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.fs.engine.Navigate(fc, childPath)
		if err != nil {
			return engine.AsNotFound(err, false)
		}
		if frag.File == nil {
			return engine.New(engine.FileNotFound, childPath, "node is a folder, not a file")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &File{fs: f.fs, path: childPath}, nil
}

// Remove detaches f from its parent, per spec.md §4.4. A non-empty folder
// requires recursive=true; recursive removal simply drops the parent's
// reference, leaving the subtree for the next defragmentation to reclaim.
func (f *Folder) Remove(recursive bool) error {
	if f.path == "" {
		return engine.New(engine.InternalError, "", "cannot remove the root folder")
	}
	return f.fs.engine.WithWriteLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		if len(frag.Folder.Children) > 0 && !recursive {
			return engine.New(engine.FolderNotEmpty, f.path, "folder is not empty")
		}
		_, err = f.fs.engine.RemoveChild(fc, frag.EffectiveParent(), frag)
		return err
	})
}

// File is a handle to a file node, identified by its path relative to root.
type File struct {
	fs   *FS
	path string
}

func (f *File) Name() string   { return baseName(f.path) }
func (f *File) IsFolder() bool { return false }
func (f *File) Path() string   { return f.path }

func (f *File) navigate(fc *engine.FileController) (*engine.Fragment, error) {
	frag, err := f.fs.engine.Navigate(fc, f.path)
	if err != nil {
		return nil, engine.AsNotFound(err, false)
	}
	if frag.File == nil {
		return nil, engine.New(engine.FileNotFound, f.path, "node is a folder, not a file")
	}
	return frag, nil
}

// Size returns the file's stored content length.
func (f *File) Size() (int64, error) {
	var size int64
	err := f.fs.engine.WithReadLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		size = frag.File.FileSize
		return nil
	})
	return size, err
}

// Read returns exactly the stored bytes.
func (f *File) Read() ([]byte, error) {
	var data []byte
	err := f.fs.engine.WithReadLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		data, err = fc.ReadFileContent(frag)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write stores data, choosing in-place rewrite or append-and-redirect per
// spec.md §4.2, and propagates the size delta to every ancestor.
func (f *File) Write(data []byte) error {
	return f.fs.engine.WithWriteLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		_, err = fc.UpdateFileContent(frag.Reference, frag.File.Name, data, frag.Parent)
		return err
	})
}

// Digest returns a content-addressed identifier for the file's current
// bytes, per SPEC_FULL.md §4.7. It is a derived, additive value: it never
// influences navigate, add_child, remove_child, or Defragment.
func (f *File) Digest() (string, error) {
	data, err := f.Read()
	if err != nil {
		return "", err
	}
	return engine.Digest(data)
}

// Remove detaches f from its parent.
func (f *File) Remove() error {
	return f.fs.engine.WithWriteLock(context.Background(), func(fc *engine.FileController) error {
		frag, err := f.navigate(fc)
		if err != nil {
			return err
		}
		_, err = f.fs.engine.RemoveChild(fc, frag.EffectiveParent(), frag)
		return err
	})
}

var (
	_ vfscontract.Folder = (*Folder)(nil)
	_ vfscontract.File   = (*File)(nil)
)
