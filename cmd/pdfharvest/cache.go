package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jkotar/pdfharvest/internal/harvest"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the identifier lookup cache",
	RunE:  runCache,
}

func init() {
	cacheCmd.Flags().Bool("reset", false, "discard all cached lookups")

	rootCmd.AddCommand(cacheCmd)
}

func runCache(cmd *cobra.Command, args []string) error {
	cfg := harvestConfig().Cache
	reset, _ := cmd.Flags().GetBool("reset")
	cfg.Reset = reset

	cache, err := harvest.OpenSecondaryIDCache(cfg)
	if err != nil {
		return err
	}

	if reset {
		if err := cache.Save(); err != nil {
			return err
		}
		fmt.Printf("cache %s reset\n", cache.Path())
		return nil
	}
	fmt.Printf("cache %s holds %d lookups\n", cache.Path(), cache.Size())
	return nil
}
