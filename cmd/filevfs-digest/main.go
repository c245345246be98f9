// Command filevfs-digest prints a content-addressed identifier for one file
// inside a backing VFS, the way the teacher's own cmd/emptytree prints a CID
// for a fixed byte string — except here the bytes come from a real file
// read through the VFS facade rather than a hardcoded "{}" literal.
package main

import (
	"fmt"
	"os"

	"filevfs/internal/engine"
	"filevfs/internal/vfs"
	"filevfs/internal/vfscontract"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <backing-file> <path>\n", os.Args[0])
		os.Exit(2)
	}

	backingFile := os.Args[1]
	path := os.Args[2]

	fs, err := vfs.Open(engine.NewEngineConfig(backingFile), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer fs.Close()

	node, err := navigate(fs, path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	file, ok := node.(*vfs.File)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: %s is a folder, not a file\n", path)
		os.Exit(1)
	}

	digest, err := file.Digest()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(digest)
}

func navigate(fs *vfs.FS, path string) (vfscontract.Node, error) {
	parentPath, name := splitParentName(path)
	parent := fs.Root()
	for _, part := range splitNonEmpty(parentPath) {
		next, err := parent.ChildFolder(part)
		if err != nil {
			return nil, err
		}
		parent = next.(*vfs.Folder)
	}
	if name == "" {
		return parent, nil
	}
	return parent.ChildFile(name)
}

func splitParentName(path string) (string, string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}

func splitNonEmpty(path string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
