package vfscontract

import (
	"bytes"
	"errors"
	"testing"
)

// memFile and memFolder are minimal in-memory fakes of the Node contracts,
// used to exercise CopyNode/MoveNode without needing a real backing store.
type memFile struct {
	name string
	data []byte
}

func (f *memFile) Name() string         { return f.name }
func (f *memFile) IsFolder() bool       { return false }
func (f *memFile) Size() (int64, error) { return int64(len(f.data)), nil }
func (f *memFile) Read() ([]byte, error) {
	return append([]byte(nil), f.data...), nil
}
func (f *memFile) Write(data []byte) error {
	f.data = append([]byte(nil), data...)
	return nil
}
func (f *memFile) Remove() error { return nil }

type memFolder struct {
	name     string
	children []Node
}

func (f *memFolder) Name() string   { return f.name }
func (f *memFolder) IsFolder() bool { return true }
func (f *memFolder) ListFolder() ([]Node, error) {
	return append([]Node(nil), f.children...), nil
}
func (f *memFolder) ChildFolder(name string) (Folder, error) {
	for _, c := range f.children {
		if c.Name() == name {
			if fold, ok := c.(Folder); ok {
				return fold, nil
			}
			return nil, errors.New("not a folder")
		}
	}
	return nil, errNotFound
}
func (f *memFolder) ChildFile(name string) (File, error) {
	for _, c := range f.children {
		if c.Name() == name {
			if file, ok := c.(File); ok {
				return file, nil
			}
			return nil, errors.New("not a file")
		}
	}
	return nil, errNotFound
}
func (f *memFolder) CreateFile(name string) (File, error) {
	file := &memFile{name: name}
	f.children = append(f.children, file)
	return file, nil
}
func (f *memFolder) CreateFolder(name string) (Folder, error) {
	sub := &memFolder{name: name}
	f.children = append(f.children, sub)
	return sub, nil
}
func (f *memFolder) Remove(recursive bool) error {
	return nil
}
func (f *memFolder) removeChild(name string) {
	out := make([]Node, 0, len(f.children))
	for _, c := range f.children {
		if c.Name() != name {
			out = append(out, c)
		}
	}
	f.children = out
}

var errNotFound = errors.New("not found")

func TestCopyFilePreservesSource(t *testing.T) {
	dst := &memFolder{name: "dst"}
	src := &memFile{name: "src", data: []byte("hello world")}

	copied, err := CopyNode(src, dst, "copy", false)
	if err != nil {
		t.Fatalf("CopyNode: %v", err)
	}

	copiedFile := copied.(*memFile)
	if !bytes.Equal(copiedFile.data, src.data) {
		t.Fatalf("copy diverged: got %q want %q", copiedFile.data, src.data)
	}
	if !bytes.Equal(src.data, []byte("hello world")) {
		t.Fatal("source was mutated by copy")
	}
}

func TestCopyFileRejectsExistingNameWithoutOverwrite(t *testing.T) {
	dst := &memFolder{name: "dst"}
	if _, err := dst.CreateFile("taken"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	src := &memFile{name: "src", data: []byte("x")}

	_, err := CopyNode(src, dst, "taken", false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	overwritten, err := CopyNode(src, dst, "taken", true)
	if err != nil {
		t.Fatalf("CopyNode with overwrite: %v", err)
	}
	if !bytes.Equal(overwritten.(*memFile).data, []byte("x")) {
		t.Fatalf("overwrite did not replace destination content")
	}
}

func TestCopyFolderRecurses(t *testing.T) {
	dst := &memFolder{name: "dst"}
	src := &memFolder{name: "src"}
	if _, err := src.CreateFile("a"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	nested, err := src.CreateFolder("nested")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := nested.CreateFile("b"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	copied, err := CopyNode(src, dst, "srccopy", false)
	if err != nil {
		t.Fatalf("CopyNode: %v", err)
	}

	copiedFolder := copied.(*memFolder)
	children, err := copiedFolder.ListFolder()
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children in the copy, got %d", len(children))
	}
}

func TestMoveNodeRemovesSourceAfterCopy(t *testing.T) {
	dst := &memFolder{name: "dst"}
	src := &memFolder{name: "root"}
	file := &memFile{name: "movable", data: []byte("payload")}
	src.children = append(src.children, file)

	removed := false
	removeSrc := func() error {
		removed = true
		src.removeChild("movable")
		return nil
	}

	moved, err := MoveNode(file, removeSrc, dst, "movable", false)
	if err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	if !removed {
		t.Fatal("removeSrc was never called")
	}
	if len(src.children) != 0 {
		t.Fatal("source folder still references the moved file")
	}
	if !bytes.Equal(moved.(*memFile).data, []byte("payload")) {
		t.Fatal("moved content diverged")
	}
}
