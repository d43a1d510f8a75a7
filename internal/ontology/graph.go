package ontology

import (
	"github.com/dominikbraun/graph"

	"github.com/trackerd/core/internal/trackererr"
)

// validateAcyclic builds a directed graph of service-parent and
// property-parent edges with github.com/dominikbraun/graph and rejects the
// registry if either forms a cycle.
func (r *Registry) validateAcyclic() error {
	if err := validateChain(r.serviceOrder, func(uri string) string {
		return r.services[uri].Parent
	}, "service"); err != nil {
		return err
	}
	if err := validateChain(r.propertyOrder, func(uri string) string {
		parents := r.properties[uri].Parents
		if len(parents) == 0 {
			return ""
		}
		return parents[0]
	}, "property"); err != nil {
		return err
	}
	return nil
}

// validateChain adds every uri in order as a vertex and an edge uri->parent(uri)
// when a parent is declared, using graph.PreventCycles so the offending
// AddEdge call fails fast with the cycle detected.
func validateChain(order []string, parentOf func(string) string, kind string) error {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, uri := range order {
		if err := g.AddVertex(uri); err != nil && err != graph.ErrVertexAlreadyExists {
			return trackererr.New(trackererr.KindParse, "ontology.validateChain", err)
		}
	}
	for _, uri := range order {
		parent := parentOf(uri)
		if parent == "" {
			continue
		}
		if _, err := g.Vertex(parent); err != nil {
			return trackererr.Newf(trackererr.KindParse, "ontology.validateChain",
				"%s %q declares unknown parent %q", kind, uri, parent)
		}
		if err := g.AddEdge(uri, parent); err != nil {
			return trackererr.Newf(trackererr.KindParse, "ontology.validateChain",
				"%s parent chain from %q forms a cycle: %v", kind, uri, err)
		}
	}
	return nil
}
