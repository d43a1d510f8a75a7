package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/update"
)

var (
	updateInsert []string
	updateDelete []string
)

// updateCmd applies INSERT DATA / DELETE DATA triples assembled from
// flags, the flag-shorthand equivalent of a SPARQL Update request for
// the same reason query.go takes triples via flags: text parsing is out
// of scope for this engine.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply INSERT DATA / DELETE DATA triples",
	Long: `Each --insert or --delete flag has the shape subjectIRI:predicateIRI:object,
where subjectIRI may instead be a _:label blank-node reference and object
is always treated as a plain literal value unless it begins with "<" and
ends with ">", in which case it is parsed as an IRI.

Example:
  tracker update \
    --insert 'file:///tmp/report.txt:rdf:type:<nfo:Document>' \
    --insert 'file:///tmp/report.txt:nie:title:Quarterly Report'`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringArrayVar(&updateInsert, "insert", nil, "subjectIRI:predicateIRI:object triple to insert (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateDelete, "delete", nil, "subjectIRI:predicateIRI:object triple to delete (repeatable)")
}

func parseUpdateTriple(raw string) (update.Triple, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return update.Triple{}, fmt.Errorf("invalid triple %q, expected subjectIRI:predicateIRI:object", raw)
	}
	subject := parseUpdateSubject(parts[0])
	object := parseUpdateObject(parts[2])
	return update.Triple{Subject: subject, Predicate: parts[1], Object: object}, nil
}

// parseUpdateSubject treats its argument as an IRI unless it is a
// "_:label" blank-node reference.
func parseUpdateSubject(raw string) ast.Term {
	if strings.HasPrefix(raw, "_:") {
		return ast.Term{Kind: ast.TermBlank, Value: strings.TrimPrefix(raw, "_:")}
	}
	return ast.Term{Kind: ast.TermIRI, Value: raw}
}

// parseUpdateObject treats its argument as a plain literal unless it is
// wrapped in angle brackets, e.g. "<nfo:Document>", which marks it as an
// IRI (needed for rdf:type triples).
func parseUpdateObject(raw string) ast.Term {
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		return ast.Term{Kind: ast.TermIRI, Value: raw[1 : len(raw)-1]}
	}
	return ast.Term{Kind: ast.TermLiteral, Value: raw}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if len(updateInsert) == 0 && len(updateDelete) == 0 {
		return fmt.Errorf("at least one --insert or --delete is required")
	}

	var ops []update.Operation
	if len(updateInsert) > 0 {
		var triples []update.Triple
		for _, raw := range updateInsert {
			t, err := parseUpdateTriple(raw)
			if err != nil {
				return err
			}
			triples = append(triples, t)
		}
		ops = append(ops, update.InsertData{Triples: triples})
	}
	if len(updateDelete) > 0 {
		var triples []update.Triple
		for _, raw := range updateDelete {
			t, err := parseUpdateTriple(raw)
			if err != nil {
				return err
			}
			triples = append(triples, t)
		}
		ops = append(ops, update.DeleteData{Triples: triples})
	}

	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	bar := newOperationBar(len(updateInsert)+len(updateDelete), "Applying update")
	defer bar.Finish()

	if err := e.ExecuteUpdate(context.Background(), ops); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	bar.Add(len(updateInsert) + len(updateDelete))

	if scheduled, done := e.MaybeOptimizeAsync(); scheduled {
		<-done
	}

	fmt.Println("\n✓ update applied")
	return nil
}
