package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"melody/logger"
	"melody/storage"
)

var (
	storagePrefix string
	storageStats  bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the object-store bucket",
	Long:  `Lists stored audio objects or prints bucket statistics. MinIO backend only.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			logger.Fatal("failed to connect to object storage", logger.ErrorField(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var count int
		var totalSize int64
		err = store.ListObjects(ctx, storagePrefix, func(name string, size int64) {
			count++
			totalSize += size
			if !storageStats {
				fmt.Printf("%12d  %s\n", size, name)
			}
		})
		if err != nil {
			logger.Fatal("failed to list objects", logger.ErrorField(err))
		}

		fmt.Printf("%d objects, %.1f MB total\n", count, float64(totalSize)/(1<<20))
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "filter objects by key prefix")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "print totals only")
}
