package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks the config for:
//   - Required fields and known enum values
//   - Threshold strictly inside (0, 1)
//   - Presence of the input directories the selected strategy reads
//
// requireVideo is false for the HTTP service, where sessions arrive in requests.
func Validate(cfg *JudgeConfig, requireVideo bool) error {
	var errs []string

	if cfg.Version == "" {
		errs = append(errs, "version is required")
	}
	if requireVideo && cfg.VideoID == "" {
		errs = append(errs, "video_id is required")
	}
	if strings.ContainsAny(cfg.VideoID, `/\`) {
		errs = append(errs, fmt.Sprintf("video_id %q must not contain path separators", cfg.VideoID))
	}

	j := cfg.Judgement
	switch j.Strategy {
	case "raw", "normalized":
	default:
		errs = append(errs, fmt.Sprintf("judgement.strategy %q must be raw or normalized", j.Strategy))
	}
	if !(j.Threshold > 0 && j.Threshold < 1) {
		errs = append(errs, fmt.Sprintf("judgement.threshold %v must be in (0, 1)", j.Threshold))
	}
	switch j.BlockKey {
	case "channel_url", "channel_id":
	default:
		errs = append(errs, fmt.Sprintf("judgement.block_key %q must be channel_url or channel_id", j.BlockKey))
	}
	if j.MaxCompareRunes < 0 {
		errs = append(errs, "judgement.max_compare_runes must not be negative")
	}
	if j.MaxPatterns < 1 {
		errs = append(errs, "judgement.max_patterns must be positive")
	}
	if cfg.Engine.Workers < 1 {
		errs = append(errs, "engine.workers must be at least 1")
	}

	checkDir := func(field, path string) {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
		case !info.IsDir():
			errs = append(errs, fmt.Sprintf("%s: %s is not a directory", field, path))
		}
	}
	checkDir("input.ng_channel_dir", cfg.Input.NGChannelDir)
	if j.Strategy == "normalized" {
		checkDir("input.ng_pattern_dir", cfg.Input.NGPatternDir)
	} else {
		checkDir("input.ng_comment_dir", cfg.Input.NGCommentDir)
	}
	if j.CommentLenWarn {
		if _, err := os.Stat(cfg.Input.LangLenPath); err != nil {
			errs = append(errs, fmt.Sprintf("input.lang_len_path: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}
