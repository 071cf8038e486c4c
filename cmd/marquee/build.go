package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Agurato/marquee/internal/infrastructure"
	"github.com/Agurato/marquee/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write the viewer page and its assets next to the data file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		dataFile, err := infrastructure.NewDataFile(cfg.OutputPath)
		if err != nil {
			return err
		}
		builder, err := site.NewBuilder(cfg.SiteTitle)
		if err != nil {
			return err
		}
		written, err := builder.Build(dataFile.Dir(), filepath.Base(dataFile.Path()))
		if err != nil {
			return fmt.Errorf("could not build site: %w", err)
		}
		log.Info().Str("dir", dataFile.Dir()).Int("written", len(written)).Msg("Site built")
		return nil
	},
}
