package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	quiet        bool
	configFile   string
	blockSizeArg uint32
	totalBlocks  uint32

	rootCmd = &cobra.Command{
		Use:   "sfs",
		Short: "Tool for building and inspecting single-image block filesystems",
	}

	formatCmd = &cobra.Command{
		Use:   "format <diskFile>",
		Short: "Format (or create) a backing image",
		Args:  cobra.ExactArgs(1),
		Run:   Format,
	}

	mountCmd = &cobra.Command{
		Use:   "mount <diskFile> <mountPoint>",
		Short: "Mount a backing image",
		Args:  cobra.ExactArgs(2),
		Run:   MountCmd,
	}

	fsckCmd = &cobra.Command{
		Use:   "fsck <diskFile>",
		Short: "Check a backing image for consistency",
		Args:  cobra.ExactArgs(1),
		Run:   Fsck,
	}

	statCmd = &cobra.Command{
		Use:   "stat <diskFile> <path>",
		Short: "Print attributes for a path",
		Args:  cobra.ExactArgs(2),
		Run:   Stat,
	}

	lsCmd = &cobra.Command{
		Use:   "ls <diskFile> <path>",
		Short: "List a directory's entries",
		Args:  cobra.ExactArgs(2),
		Run:   Ls,
	}

	fixFsck bool
)

func FatalErrCheck(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func Infof(format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Printf(format, args...)
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress nonessential output")

	formatCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML file with format parameters")
	formatCmd.Flags().Uint32Var(&blockSizeArg, "block-size", 0, "override block size (bytes)")
	formatCmd.Flags().Uint32Var(&totalBlocks, "total-blocks", 0, "override total block count")

	fsckCmd.Flags().BoolVar(&fixFsck, "fix", false, "correct recoverable superblock counters")

	rootCmd.AddCommand(formatCmd, mountCmd, fsckCmd, statCmd, lsCmd)

	if err := rootCmd.Execute(); err != nil {
		FatalErrCheck(err)
	}
}

func init() {
	log.SetFlags(0)
	log.SetPrefix("sfs: ")
}
