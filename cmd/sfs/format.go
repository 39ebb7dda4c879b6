package main

import (
	"os"

	"github.com/spf13/cobra"

	"example.com/sfs/internal/sfs"
)

func Format(cmd *cobra.Command, args []string) {
	diskFile := args[0]

	cfg, err := sfs.LoadFormatConfig(configFile)
	FatalErrCheck(err)

	// CLI flags win over the config file / environment layers.
	if blockSizeArg != 0 {
		cfg.BlockSize = blockSizeArg
	}
	if totalBlocks != 0 {
		cfg.TotalBlocks = totalBlocks
	}

	FatalErrCheck(cfg.Validate())

	file, err := os.OpenFile(diskFile, os.O_RDWR|os.O_CREATE, 0644)
	FatalErrCheck(err)
	defer file.Close()

	vol, err := sfs.NewFileVolume(file, cfg.BlockSize)
	FatalErrCheck(err)
	FatalErrCheck(vol.Truncate(cfg.TotalBlocks))

	_, err = sfs.Mount(vol, cfg.Params())
	FatalErrCheck(err)

	Infof("formatted %s: blockSize=%d totalBlocks=%d\n", diskFile, cfg.BlockSize, cfg.TotalBlocks)
}
