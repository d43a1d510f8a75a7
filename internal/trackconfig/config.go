// Package trackconfig holds the engine-wide configuration, loaded from
// .tracker/config.yml with environment overrides (a plain struct with
// yaml and mapstructure tags, plus a Default() constructor).
package trackconfig

// Config is the complete engine configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Index    IndexConfig    `yaml:"index" mapstructure:"index"`
	Parser   ParserConfig   `yaml:"parser" mapstructure:"parser"`
}

// DatabaseConfig points at the SQLite metadata store.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // e.g. ".tracker/meta.db"
}

// IndexConfig configures the inverted word index (C3).
type IndexConfig struct {
	Path              string  `yaml:"path" mapstructure:"path"`                               // inverted-index file path
	Divisions         int     `yaml:"divisions" mapstructure:"divisions"`                     // number of hash divisions (shards)
	MinBucketCount    int     `yaml:"min_bucket_count" mapstructure:"min_bucket_count"`       // floor for re-hash sizing
	MaxBucketCount    int     `yaml:"max_bucket_count" mapstructure:"max_bucket_count"`       // ceiling for re-hash sizing
	BucketRatio       float64 `yaml:"bucket_ratio" mapstructure:"bucket_ratio"`               // records-per-bucket ratio above which optimization is due
	MaxIndexFileBytes int64   `yaml:"max_index_file_bytes" mapstructure:"max_index_file_bytes"` // index file larger than this fails to open
}

// ParserConfig configures the term parser (C2).
type ParserConfig struct {
	MinWordLength  int    `yaml:"min_word_length" mapstructure:"min_word_length"`
	MaxWordLength  int    `yaml:"max_word_length" mapstructure:"max_word_length"`
	UsePangoBreak  bool   `yaml:"use_word_break" mapstructure:"use_word_break"` // word-boundary segmentation, CJK-safe
	IndexNumbers   bool   `yaml:"index_numbers" mapstructure:"index_numbers"`
	EnableStemming bool   `yaml:"enable_stemming" mapstructure:"enable_stemming"`
	StopWordsPath  string `yaml:"stop_words_path" mapstructure:"stop_words_path"`
}

// Default returns a configuration with sensible defaults (3-char minimum
// word length, 4-division index, ratio-2 bucket sizing).
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: ".tracker/meta.db",
		},
		Index: IndexConfig{
			Path:              ".tracker/words.idx",
			Divisions:         4,
			MinBucketCount:    4096,
			MaxBucketCount:    8_000_000,
			BucketRatio:       2.0,
			MaxIndexFileBytes: 2 << 30, // 2 GiB
		},
		Parser: ParserConfig{
			MinWordLength:  3,
			MaxWordLength:  30,
			UsePangoBreak:  true,
			IndexNumbers:   true,
			EnableStemming: true,
			StopWordsPath:  ".tracker/stopwords.yml",
		},
	}
}
