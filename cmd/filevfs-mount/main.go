// Command filevfs-mount exposes a single-file VFS backing store as a real
// mountpoint via FUSE, mirroring the signal-handling shape of the teacher's
// cmd/fuse-test: mount, wait for SIGINT/SIGTERM, unmount, exit.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"filevfs/internal/engine"
	"filevfs/internal/fusebridge"
	"filevfs/internal/vfs"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <backing-file> <mountpoint>\n", os.Args[0])
		os.Exit(2)
	}
	backingFile := os.Args[1]
	mountpoint := os.Args[2]

	cfg := engine.NewEngineConfig(backingFile)
	logger := engine.NewLogger()
	logger.Start()
	defer logger.Stop()

	root, err := vfs.Open(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer root.Close()

	server, err := gofuse.Mount(mountpoint, fusebridge.Root(root), &gofuse.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "filevfs",
			Name:       "filevfs",
			AllowOther: false,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "mount failed:", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		server.Unmount()
	}()

	server.Wait()
}
