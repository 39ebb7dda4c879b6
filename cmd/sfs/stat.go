package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/sfs/internal/sfs"
)

func Stat(cmd *cobra.Command, args []string) {
	diskFile, path := args[0], args[1]

	file, err := os.OpenFile(diskFile, os.O_RDONLY, 0644)
	FatalErrCheck(err)
	defer file.Close()

	blockSize, err := sfs.PeekBlockSize(file)
	FatalErrCheck(err)

	vol, err := sfs.NewFileVolume(file, blockSize)
	FatalErrCheck(err)

	params := sfs.DefaultFormatParams()
	params.BlockSize = blockSize
	fs, err := sfs.Mount(vol, params)
	FatalErrCheck(err)

	attr, err := fs.Getattr(path)
	FatalErrCheck(err)

	kind := "file"
	if attr.IsDir {
		kind = "dir"
	}
	fmt.Printf("path:        %s\n", path)
	fmt.Printf("type:        %s\n", kind)
	fmt.Printf("mode:        %04o\n", attr.Mode)
	fmt.Printf("size:        %d\n", attr.Size)
	fmt.Printf("blocks512:   %d\n", attr.Blocks512)
	fmt.Printf("lastAccess:  %d\n", attr.LastAccess)
	fmt.Printf("lastModify:  %d\n", attr.LastModify)
	fmt.Printf("lastChange:  %d\n", attr.LastChange)
}
