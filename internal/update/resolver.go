package update

import "github.com/google/uuid"

// blankNodeResolver assigns a stable urn:uuid: identity to every blank
// node label encountered within one update request, so "_:b1" used twice
// in the same INSERT DATA block resolves to the same resource both
// times, matching the original engine's "blank nodes live only for the
// duration of one request" SPARQL 1.1 Update semantics.
type blankNodeResolver struct {
	resolved map[string]string
}

func newBlankNodeResolver() *blankNodeResolver {
	return &blankNodeResolver{resolved: make(map[string]string)}
}

// resolve returns the urn:uuid: identity for label, minting one on first
// sight via google/uuid.
func (r *blankNodeResolver) resolve(label string) string {
	if uri, ok := r.resolved[label]; ok {
		return uri
	}
	uri := "urn:uuid:" + uuid.NewString()
	r.resolved[label] = uri
	return uri
}
