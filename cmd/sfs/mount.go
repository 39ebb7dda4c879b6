package main

import (
	"os"

	"github.com/spf13/cobra"

	"example.com/sfs/internal/sfs"
)

// MountCmd constructs a ready *sfs.FileSystem against diskFile and reports
// readiness. Wiring that FileSystem to a live kernel mount at mountPoint
// is the host integration layer's job, not the core's; this subcommand's
// responsibility ends at a successful Mount.
func MountCmd(cmd *cobra.Command, args []string) {
	diskFile, mountPoint := args[0], args[1]

	file, err := os.OpenFile(diskFile, os.O_RDWR, 0644)
	FatalErrCheck(err)
	defer file.Close()

	blockSize, err := sfs.PeekBlockSize(file)
	FatalErrCheck(err)

	vol, err := sfs.NewFileVolume(file, blockSize)
	FatalErrCheck(err)

	params := sfs.DefaultFormatParams()
	params.BlockSize = blockSize
	_, err = sfs.Mount(vol, params)
	FatalErrCheck(err)

	Infof("mounted %s at %s (host dispatch not wired in this build)\n", diskFile, mountPoint)
}
