package config

import "path/filepath"

// JudgeConfig is the top-level YAML structure.
type JudgeConfig struct {
	Version   string        `yaml:"version"`
	VideoID   string        `yaml:"video_id"`
	Input     InputConf     `yaml:"input"`
	Judgement JudgementConf `yaml:"judgement"`
	Engine    EngineConf    `yaml:"engine"`
	Output    OutputConf    `yaml:"output"`
}

// InputConf locates the session logs and the NG corpus.
type InputConf struct {
	CommentDir   string `yaml:"comment_dir"`    // <comment_dir>/<video_id>/** holds the session
	NGChannelDir string `yaml:"ng_channel_dir"` // blocklisted channels, one per line
	NGCommentDir string `yaml:"ng_comment_dir"` // literal NG phrases (raw strategy)
	NGPatternDir string `yaml:"ng_pattern_dir"` // one NG pattern per file (normalized strategy)
	LangLenPath  string `yaml:"lang_len_path"`  // lang<TAB>max runes
}

// JudgementConf selects the matching strategy and optional signals.
type JudgementConf struct {
	Strategy              string  `yaml:"strategy"` // "raw" | "normalized"
	Threshold             float64 `yaml:"threshold"`
	BlockKey              string  `yaml:"block_key"` // "channel_url" | "channel_id"
	PrenormalizedPatterns bool    `yaml:"prenormalized_patterns"`
	CommentLenWarn        bool    `yaml:"comment_len_warn"`
	MaxCompareRunes       int     `yaml:"max_compare_runes"`
	MaxPatterns           int     `yaml:"max_patterns"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers int `yaml:"workers"`
}

// OutputConf tells where results go. Empty optional paths disable that sink.
type OutputConf struct {
	Dir             string `yaml:"dir"`
	StorePath       string `yaml:"store_path"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// PatternDir returns the corpus directory used by the configured strategy.
func (c *JudgeConfig) PatternDir() string {
	if c.Judgement.Strategy == "normalized" {
		return c.Input.NGPatternDir
	}
	return c.Input.NGCommentDir
}

// SessionDir returns the directory holding the configured video's chat logs.
func (c *JudgeConfig) SessionDir() string {
	return filepath.Join(c.Input.CommentDir, c.VideoID)
}
