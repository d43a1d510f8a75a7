package cli

import (
	"os"

	"github.com/mailru/easyjson/jwriter"
)

// queryResult is the --json output shape for `tracker query`: column
// names plus string-rendered rows, matching the same loose typing the
// tabwriter table output already uses (every SQLite column value is
// stringified before printing).
//
// MarshalEasyJSON is hand-written rather than generated by easyjson's
// code-generation tool (no go:generate step runs in this module), but
// follows the same jwriter.Writer calling convention the generator would
// produce, avoiding encoding/json's reflection-based marshaling for a
// result set that may hold many rows.
type queryResult struct {
	Columns []string
	Rows    [][]string
}

func (q *queryResult) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')

	w.RawString(`"columns":`)
	w.RawByte('[')
	for i, c := range q.Columns {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(c)
	}
	w.RawByte(']')

	w.RawByte(',')
	w.RawString(`"rows":`)
	w.RawByte('[')
	for i, row := range q.Rows {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawByte('[')
		for j, v := range row {
			if j > 0 {
				w.RawByte(',')
			}
			w.String(v)
		}
		w.RawByte(']')
	}
	w.RawByte(']')

	w.RawByte('}')
}

func writeQueryResultJSON(result *queryResult) error {
	w := jwriter.Writer{}
	result.MarshalEasyJSON(&w)
	if w.Error != nil {
		return w.Error
	}
	_, err := w.DumpTo(os.Stdout)
	return err
}
