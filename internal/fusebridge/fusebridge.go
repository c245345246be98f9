// Package fusebridge mounts the VFS facade (internal/vfs) as a real kernel
// filesystem, grounded on the teacher's internal/server/fuse.go and
// cmd/fuse-test/main.go, rebuilt against github.com/hanwen/go-fuse/v2's
// fs.InodeEmbedder API (the package go.mod actually pins) instead of the
// teacher's bazil.org/fuse usage.
//
// Every node here delegates straight to the corresponding VFS facade
// operation. It holds no cache of its own and never keeps an engine lock
// across a FUSE callback, per spec.md §5.
package fusebridge

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"filevfs/internal/engine"
	"filevfs/internal/vfs"
	"filevfs/internal/vfscontract"
)

// node is the single fs.InodeEmbedder implementation for both files and
// folders: exactly one of folder/file is non-nil.
type node struct {
	fs.Inode

	root   *vfs.FS
	folder vfscontract.Folder
	file   vfscontract.File
}

var (
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeWriter    = (*node)(nil)
	_ fs.NodeCreater   = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
	_ fs.NodeRenamer   = (*node)(nil)
)

// Root builds the mount's root inode wrapping fs's root folder.
func Root(vfsRoot *vfs.FS) fs.InodeEmbedder {
	return &node{root: vfsRoot, folder: vfsRoot.Root()}
}

func errnoFor(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch {
	case engine.Is(err, engine.FileNotFound), engine.Is(err, engine.FolderNotFound), engine.Is(err, engine.NodeNotFound):
		return syscall.ENOENT
	case engine.Is(err, engine.FileExists), engine.Is(err, engine.NodeExists):
		return syscall.EEXIST
	case engine.Is(err, engine.FolderNotEmpty):
		return syscall.ENOTEMPTY
	case engine.Is(err, engine.CrossFSOperation):
		return syscall.EXDEV
	default:
		return syscall.EIO
	}
}

func (n *node) childInode(ctx context.Context, name string) (*fs.Inode, syscall.Errno) {
	if n.folder == nil {
		return nil, syscall.ENOTDIR
	}

	if childFolder, err := n.folder.ChildFolder(name); err == nil {
		return n.newChildFolder(ctx, childFolder), 0
	}
	childFile, err := n.folder.ChildFile(name)
	if err != nil {
		return nil, errnoFor(err)
	}
	return n.newChildFile(ctx, childFile), 0
}

func (n *node) newChildFolder(ctx context.Context, folder vfscontract.Folder) *fs.Inode {
	child := &node{root: n.root, folder: folder}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR})
}

func (n *node) newChildFile(ctx context.Context, file vfscontract.File) *fs.Inode {
	child := &node{root: n.root, file: file}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG})
}

// Lookup resolves name as an immediate child, trying a folder then a file,
// delegating to vfs.Folder.ChildFolder/ChildFile.
func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	inode, errno := n.childInode(ctx, name)
	if errno != 0 {
		return nil, errno
	}
	fillEntryOut(inode, out)
	return inode, 0
}

// Readdir lists the folder's children in stored insertion order via
// vfs.Folder.ListFolder.
func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if n.folder == nil {
		return nil, syscall.ENOTDIR
	}
	children, err := n.folder.ListFolder()
	if err != nil {
		return nil, errnoFor(err)
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		mode := uint32(syscall.S_IFREG)
		if c.IsFolder() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name(), Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

// Getattr reports a folder's fixed directory mode or a file's current
// stored size, via vfs.File.Size.
func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if n.folder != nil {
		out.Mode = syscall.S_IFDIR | 0755
		return 0
	}
	size, err := n.file.Size()
	if err != nil {
		return errnoFor(err)
	}
	out.Mode = syscall.S_IFREG | 0644
	out.Size = uint64(size)
	return 0
}

// Open is a no-op: every Read/Write call re-reads or rewrites the file
// through the VFS facade directly, so no open-file state is needed.
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.file == nil {
		return nil, 0, syscall.EISDIR
	}
	return nil, 0, 0
}

// Read serves dest from vfs.File.Read, never caching the content across
// calls.
func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.file.Read()
	if err != nil {
		return nil, errnoFor(err)
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

// Write reads the file's current content, splices data in at off, and
// writes the result back whole, since the backing format has no notion of
// a partial in-place byte range write narrower than a full record.
func (n *node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	current, err := n.file.Read()
	if err != nil {
		return 0, errnoFor(err)
	}

	end := off + int64(len(data))
	var next []byte
	if end > int64(len(current)) {
		next = make([]byte, end)
		copy(next, current)
	} else {
		next = append([]byte(nil), current...)
	}
	copy(next[off:end], data)

	if err := n.file.Write(next); err != nil {
		return 0, errnoFor(err)
	}
	return uint32(len(data)), 0
}

// Create makes an empty file via vfs.Folder.CreateFile.
func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	if n.folder == nil {
		return nil, nil, 0, syscall.ENOTDIR
	}
	file, err := n.folder.CreateFile(name)
	if err != nil {
		return nil, nil, 0, errnoFor(err)
	}
	inode := n.newChildFile(ctx, file)
	fillEntryOut(inode, out)
	return inode, nil, 0, 0
}

// Mkdir makes an empty folder via vfs.Folder.CreateFolder.
func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.folder == nil {
		return nil, syscall.ENOTDIR
	}
	folder, err := n.folder.CreateFolder(name)
	if err != nil {
		return nil, errnoFor(err)
	}
	inode := n.newChildFolder(ctx, folder)
	fillEntryOut(inode, out)
	return inode, 0
}

// Unlink removes a file via vfs.File.Remove.
func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	if n.folder == nil {
		return syscall.ENOTDIR
	}
	file, err := n.folder.ChildFile(name)
	if err != nil {
		return errnoFor(err)
	}
	return errnoFor(file.Remove())
}

// Rmdir removes an empty folder via vfs.Folder.Remove(false), surfacing
// FolderNotEmpty as ENOTEMPTY rather than recursing.
func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	if n.folder == nil {
		return syscall.ENOTDIR
	}
	folder, err := n.folder.ChildFolder(name)
	if err != nil {
		return errnoFor(err)
	}
	return errnoFor(folder.Remove(false))
}

// Rename delegates to vfs.FS.Move, the same operation the facade exposes to
// every other caller.
func (n *node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if n.folder == nil {
		return syscall.ENOTDIR
	}
	destNode, ok := newParent.(*node)
	if !ok || destNode.folder == nil {
		return syscall.EINVAL
	}
	destFolder, ok := destNode.folder.(*vfs.Folder)
	if !ok {
		return syscall.EINVAL
	}

	var src vfscontract.Node
	var err error
	if folder, ferr := n.folder.ChildFolder(name); ferr == nil {
		src = folder
	} else if file, ferr := n.folder.ChildFile(name); ferr == nil {
		src = file
	} else {
		return errnoFor(ferr)
	}

	overwrite := flags&unix.RENAME_NOREPLACE == 0
	_, err = n.root.Move(src, destFolder, newName, overwrite)
	return errnoFor(err)
}

func fillEntryOut(inode *fs.Inode, out *fuse.EntryOut) {
	out.NodeId = inode.StableAttr().Ino
	out.Attr.Mode = inode.Mode()
}
