package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/trackerd/core/internal/engine"
	"github.com/trackerd/core/internal/trackconfig"
)

// openEngine builds a trackconfig.Config from viper (flags, config file,
// env) and opens an Engine against it, the shared bootstrap every
// subcommand (query, update, search, index, ontology) needs before it can
// do anything else.
func openEngine() (*engine.Engine, error) {
	cfg := trackconfig.Default()
	if viper.IsSet("database.path") {
		cfg.Database.Path = viper.GetString("database.path")
	}
	if viper.IsSet("index.path") {
		cfg.Index.Path = viper.GetString("index.path")
	}
	if viper.IsSet("index.divisions") {
		cfg.Index.Divisions = viper.GetInt("index.divisions")
	}
	if viper.IsSet("parser.stop_words_path") {
		cfg.Parser.StopWordsPath = viper.GetString("parser.stop_words_path")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	dir := ontologyDir
	if viper.IsSet("ontology-dir") {
		dir = viper.GetString("ontology-dir")
	}

	return engine.Open(cfg, dir, log)
}
