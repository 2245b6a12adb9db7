package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/exif"
	"github.com/phototrip/phototrip/internal/manifest"
)

func init() {
	var (
		root    string
		out     string
		prefix  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scan a photo directory and write a manifest",
		Long: "Walks the photo directory for .jpg, .jpeg and .png files, reads GPS and " +
			"capture time from each and writes a manifest grouped by subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setupLogging(false, nil); err != nil {
				return err
			}
			if root == "" {
				root = config.GetServerConfig().PhotosRoot
			}
			if workers <= 0 {
				workers = config.GetExtractConfig().Workers
			}
			loc, err := extractLocation()
			if err != nil {
				return err
			}

			gen := &manifest.Generator{
				Root:       root,
				PathPrefix: prefix,
				Extractor:  exif.NewReader(root),
				Location:   loc,
				Workers:    workers,
				Logger:     Logger.With("component", "generate"),
			}
			doc, err := gen.Generate(cmd.Context())
			if err != nil {
				return err
			}
			if err := manifest.WriteFile(out, doc); err != nil {
				return err
			}
			Logger.Info("Manifest written", "file", out, "photos", doc.Len(), "trips", len(doc.Trips))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d photos in %d trips to %s\n", doc.Len(), len(doc.Trips), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&root, "root", "r", "", "Photo directory (default: server.photosRoot)")
	cmd.Flags().StringVarP(&out, "out", "o", "photos.json", "Manifest file to write")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix prepended to every photo path")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent extractions (default: extract.workers)")

	rootCmd.AddCommand(cmd)
}
