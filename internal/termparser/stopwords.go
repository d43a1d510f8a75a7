package termparser

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trackerd/core/internal/trackererr"
)

// LoadStopWords reads a YAML document holding a flat `words: [...]` list
// from path and returns it as a lower-cased set ready for New. A missing
// file is not an error: it is treated as an empty stop-word set, since
// stop-word filtering is an optional tuning knob, not a required asset.
func LoadStopWords(path string) (map[string]struct{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, trackererr.New(trackererr.KindIO, "termparser.LoadStopWords", err)
	}

	var doc struct {
		Words []string `yaml:"words"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, trackererr.New(trackererr.KindParse, "termparser.LoadStopWords", err)
	}

	set := make(map[string]struct{}, len(doc.Words))
	for _, w := range doc.Words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set, nil
}
