package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/sfs/internal/sfs"
)

func Ls(cmd *cobra.Command, args []string) {
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

	err = fs.Readdir(path, func(name string) bool {
		fmt.Println(name)
		return true
	})
	FatalErrCheck(err)
}
