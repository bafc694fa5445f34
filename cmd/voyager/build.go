package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	voyager "github.com/canbakiskan/voyager-go"
	"github.com/canbakiskan/voyager-go/blobstore"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <vectors.csv> <out>",
		Short: "Build an index from CSV vectors",
		Long: `Build an index from a CSV file with one vector per row.

Index parameters come from the YAML file given with --config; flags
override it.`,
		Args: cobra.ExactArgs(2),
		RunE: runBuild,
	}
	cmd.Flags().String("config", "", "YAML build configuration")
	cmd.Flags().String("space", "", "distance space (euclidean, ip, cosine)")
	cmd.Flags().String("compression", "", "snapshot compression (none, lz4, zstd)")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadBuildConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("space") {
		cfg.Space, _ = cmd.Flags().GetString("space")
	}
	if cmd.Flags().Changed("compression") {
		cfg.Compression, _ = cmd.Flags().GetString("compression")
	}
	compression, err := voyager.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	vectors, labels, err := readVectors(f, cfg.LabelColumn)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("read %s: no vectors", args[0])
	}

	space, opts, err := cfg.indexOptions(len(vectors))
	if err != nil {
		return err
	}
	idx, err := voyager.New(space, len(vectors[0]), opts...)
	if err != nil {
		return err
	}
	defer idx.Close()

	if _, err := idx.AddItems(vectors, labels, cfg.Threads); err != nil {
		return err
	}

	out := args[1]
	if compression == voyager.CompressionNone {
		err = idx.SaveIndex(out)
	} else {
		store := blobstore.NewLocalStore(filepath.Dir(out))
		err = idx.SaveToBlob(cmd.Context(), store, filepath.Base(out), voyager.WithCompression(compression))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %s\n", out, idx)
	return nil
}
