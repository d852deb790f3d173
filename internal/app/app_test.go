package app

import (
	"testing"

	"forg/internal/config"
	"forg/internal/organizer"
)

func TestPipelineOptionsFromConfig(t *testing.T) {
	t.Run("maps all fields", func(t *testing.T) {
		cfg := config.OrganizeConfig{
			Recursive:           true,
			DetectDuplicates:    true,
			SimilarityThreshold: 0.8,
			Strategy:            "largest",
			Workers:             4,
		}

		opts := pipelineOptionsFromConfig(cfg)
		if !opts.Recursive {
			t.Error("Recursive should carry over")
		}
		if !opts.DetectDuplicates {
			t.Error("DetectDuplicates should carry over")
		}
		if opts.SimilarityThreshold != 0.8 {
			t.Errorf("SimilarityThreshold = %v, want 0.8", opts.SimilarityThreshold)
		}
		if opts.Strategy != organizer.KeepLargest {
			t.Errorf("Strategy = %q, want %q", opts.Strategy, organizer.KeepLargest)
		}
	})

	t.Run("empty strategy defaults to newest", func(t *testing.T) {
		opts := pipelineOptionsFromConfig(config.OrganizeConfig{})
		if opts.Strategy != organizer.KeepNewest {
			t.Errorf("Strategy = %q, want %q", opts.Strategy, organizer.KeepNewest)
		}
	})

	t.Run("defaults from NewConfig survive the mapping", func(t *testing.T) {
		cfg := config.NewConfig("host-1", t.TempDir())
		opts := pipelineOptionsFromConfig(cfg.Organize)
		if !opts.Recursive || !opts.DetectDuplicates {
			t.Error("default config should enable recursion and duplicate detection")
		}
		if opts.SimilarityThreshold != 0.95 {
			t.Errorf("SimilarityThreshold = %v, want 0.95", opts.SimilarityThreshold)
		}
		if opts.Strategy != organizer.KeepNewest {
			t.Errorf("Strategy = %q, want %q", opts.Strategy, organizer.KeepNewest)
		}
	})
}
