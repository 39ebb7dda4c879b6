package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/sfs/internal/sfs"
)

func Fsck(cmd *cobra.Command, args []string) {
	diskFile := args[0]

	file, err := os.OpenFile(diskFile, os.O_RDWR, 0644)
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

	checker := sfs.NewChecker(fs)
	violations, err := checker.Check()
	FatalErrCheck(err)

	if len(violations) == 0 {
		Infof("fsck: %s: no violations found\n", diskFile)
		return
	}

	for _, v := range violations {
		fmt.Printf("%s: %s\n", v.Kind, v.Message)
	}

	if fixFsck {
		FatalErrCheck(checker.Fix())
		Infof("fsck: superblock counters corrected\n")
		return
	}

	os.Exit(1)
}
