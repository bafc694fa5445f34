// Command voyager builds, inspects and queries index files.
//
//	voyager build --config build.yaml vectors.csv products.voy
//	voyager info products.voy
//	voyager query products.voy --k 5 "0.1,0.2,0.3"
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	voyager "github.com/canbakiskan/voyager-go"
	"github.com/canbakiskan/voyager-go/blobstore"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voyager",
		Short:         "Build, inspect and query approximate nearest-neighbor indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("mmap", false, "read uncompressed index files through a memory mapping")
	root.AddCommand(newInfoCmd(), newBuildCmd(), newQueryCmd())
	return root
}

// openIndex loads path, which holds either a plain index or a compressed
// snapshot written by build --compression.
func openIndex(cmd *cobra.Command, path string) (*voyager.Index, error) {
	useMmap, _ := cmd.Flags().GetBool("mmap")
	if useMmap {
		return voyager.LoadIndexMapped(path, voyager.LoadOptions{})
	}
	store := blobstore.NewLocalStore(filepath.Dir(path))
	return voyager.LoadFromBlob(cmd.Context(), store, filepath.Base(path), voyager.LoadOptions{})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "voyager:", err)
		os.Exit(1)
	}
}
