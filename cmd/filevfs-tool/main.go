// Command filevfs-tool drives a single-file VFS backing store from the
// shell, for scripting and manual inspection without mounting FUSE. It
// hand-parses os.Args the same way the teacher's own cmd/grits does for its
// small command surface — no flag-parsing library is worth adopting here.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filevfs/internal/engine"
	"filevfs/internal/vfs"
	"filevfs/internal/vfscontract"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: filevfs-tool <backing-file> <command> [args...]

commands:
  ls <path>              list a folder's children
  mkdir <path>           create a folder
  create <path>          create an empty file
  cat <path>             print a file's content to stdout
  write <path>           write stdin to a file
  rm [-r] <path>         remove a file, or a folder (recursively with -r)
  mv <src> <dst>         move src to dst
  cp <src> <dst>         copy src to dst
  digest <path>          print a content digest for a file`)
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	backingFile := os.Args[1]
	command := os.Args[2]
	args := os.Args[3:]

	cfg := engine.NewEngineConfig(backingFile)
	fs, err := vfs.Open(cfg, nil)
	if err != nil {
		fail(err)
	}
	defer fs.Close()

	if err := run(fs, command, args); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func run(fs *vfs.FS, command string, args []string) error {
	switch command {
	case "ls":
		return cmdList(fs, requireOne(args))
	case "mkdir":
		return cmdMkdir(fs, requireOne(args))
	case "create":
		return cmdCreate(fs, requireOne(args))
	case "cat":
		return cmdCat(fs, requireOne(args))
	case "write":
		return cmdWrite(fs, requireOne(args))
	case "rm":
		return cmdRemove(fs, args)
	case "mv":
		return cmdMove(fs, args)
	case "cp":
		return cmdCopy(fs, args)
	case "digest":
		return cmdDigest(fs, requireOne(args))
	default:
		usage()
		os.Exit(2)
		return nil
	}
}

func requireOne(args []string) string {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	return args[0]
}

func splitParentName(path string) (string, string) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func resolveFolder(fs *vfs.FS, path string) (vfscontract.Folder, error) {
	current := vfscontract.Folder(fs.Root())
	path = strings.Trim(path, "/")
	if path == "" {
		return current, nil
	}
	for _, part := range strings.Split(path, "/") {
		next, err := current.ChildFolder(part)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func cmdList(fs *vfs.FS, path string) error {
	folder, err := resolveFolder(fs, path)
	if err != nil {
		return err
	}
	children, err := folder.ListFolder()
	if err != nil {
		return err
	}
	for _, c := range children {
		kind := "file"
		if c.IsFolder() {
			kind = "folder"
		}
		fmt.Printf("%-6s %s\n", kind, c.Name())
	}
	return nil
}

func cmdMkdir(fs *vfs.FS, path string) error {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	_, err = parent.CreateFolder(name)
	return err
}

func cmdCreate(fs *vfs.FS, path string) error {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	_, err = parent.CreateFile(name)
	return err
}

func cmdCat(fs *vfs.FS, path string) error {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	file, err := parent.ChildFile(name)
	if err != nil {
		return err
	}
	data, err := file.Read()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func cmdWrite(fs *vfs.FS, path string) error {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	file, err := parent.ChildFile(name)
	if err != nil {
		file, err = parent.CreateFile(name)
		if err != nil {
			return err
		}
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return file.Write(data)
}

func cmdRemove(fs *vfs.FS, args []string) error {
	recursive := false
	if len(args) == 2 && args[0] == "-r" {
		recursive = true
		args = args[1:]
	}
	path := requireOne(args)

	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	if folder, err := parent.ChildFolder(name); err == nil {
		return folder.Remove(recursive)
	}
	file, err := parent.ChildFile(name)
	if err != nil {
		return err
	}
	return file.Remove()
}

func resolveNode(fs *vfs.FS, path string) (vfscontract.Node, error) {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return nil, err
	}
	if folder, err := parent.ChildFolder(name); err == nil {
		return folder, nil
	}
	return parent.ChildFile(name)
}

func cmdMove(fs *vfs.FS, args []string) error {
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	src, err := resolveNode(fs, args[0])
	if err != nil {
		return err
	}
	dstParentPath, dstName := splitParentName(args[1])
	dstParent, err := resolveFolder(fs, dstParentPath)
	if err != nil {
		return err
	}
	_, err = fs.Move(src, dstParent.(*vfs.Folder), dstName, false)
	return err
}

func cmdCopy(fs *vfs.FS, args []string) error {
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	src, err := resolveNode(fs, args[0])
	if err != nil {
		return err
	}
	dstParentPath, dstName := splitParentName(args[1])
	dstParent, err := resolveFolder(fs, dstParentPath)
	if err != nil {
		return err
	}
	_, err = fs.Copy(src, dstParent.(*vfs.Folder), dstName, false)
	return err
}

func cmdDigest(fs *vfs.FS, path string) error {
	parentPath, name := splitParentName(path)
	parent, err := resolveFolder(fs, parentPath)
	if err != nil {
		return err
	}
	file, err := parent.ChildFile(name)
	if err != nil {
		return err
	}
	vfsFile, ok := file.(*vfs.File)
	if !ok {
		return fmt.Errorf("%s: not a filevfs file handle", path)
	}
	digest, err := vfsFile.Digest()
	if err != nil {
		return err
	}
	fmt.Println(digest)
	return nil
}
