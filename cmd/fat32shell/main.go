package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// defaultImagePath is used when the shell is launched without a
// positional image-path argument.
const defaultImagePath = "disk1.img"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fat32shell [image path]",
		Short: "Interactive shell over a FAT32 image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultImagePath
			if len(args) == 1 {
				path = args[0]
			}
			return runShell(path)
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
