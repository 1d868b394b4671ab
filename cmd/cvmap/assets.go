package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cv-mapper/internal/bootstrap"
	"cv-mapper/internal/shared/config"
)

func newAssetsCmd() *cobra.Command {
	assets := &cobra.Command{
		Use:   "assets",
		Short: "Manage the template assets in the configured store",
	}

	var key string
	put := &cobra.Command{
		Use:   "put FILE",
		Short: "Upload a template or image to ASSET_STORE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			var sniff [512]byte
			n, _ := f.Read(sniff[:])
			if _, err := f.Seek(0, 0); err != nil {
				return err
			}

			cfg := config.Load()
			store, err := bootstrap.BuildStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if key == "" {
				key = filepath.Base(args[0])
			}
			written, err := store.Put(cmd.Context(), key, http.DetectContentType(sniff[:n]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes) in %s store\n", key, written, cfg.AssetStoreType)
			return nil
		},
	}
	put.Flags().StringVarP(&key, "key", "k", "", "Storage key (defaults to the file name)")

	assets.AddCommand(put)
	return assets
}
