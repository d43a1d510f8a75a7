// Package ontology loads the class/property descriptors that drive storage
// table inference and SPARQL translation, mirroring the shape of the
// teacher's internal/storage schema constants but built from data instead
// of from hardcoded DDL.
package ontology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/trackerd/core/internal/trackererr"
)

// Property is the resolved, registry-attached form of a PropertyDescriptor:
// Table is precomputed and the chain through each property's first
// Parents entry has been validated acyclic.
type Property struct {
	URI            string
	DataType       DataType
	MultipleValues bool
	Embedded       bool
	Filtered       bool
	Delimited      bool
	Weight         int
	Parents        []string
	Table          TableName
}

// Service is the resolved, registry-attached form of a ServiceDescriptor.
// KeyMetadata is expanded to include inherited key-metadata from Parent.
type Service struct {
	URI             string
	Parent          string
	HasMetadata     bool
	HasFulltext     bool
	HasThumbs       bool
	KeyMetadata     []string
	Mimes           []string
	mimeGlobs       []glob.Glob
	MimePrefixes    []string
	TabularMetadata bool
	TileMetadata    bool
}

// Registry is the immutable, loaded ontology: every class and property
// known to the engine, indexed for O(1) lookup by URI.
type Registry struct {
	properties map[string]*Property
	services   map[string]*Service
	// serviceOrder and propertyOrder preserve descriptor declaration order,
	// which ServiceTypeID numbering, parent-chain validation and the
	// Services/Properties listings all follow.
	serviceOrder  []string
	propertyOrder []string
}

// Load reads every *.yml/*.yaml file in dir as a descriptorFile, merges
// their services and properties into one Registry, and validates the
// parent-chain graph (services and properties alike) for cycles.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, trackererr.New(trackererr.KindIO, "ontology.Load", err)
	}

	reg := &Registry{
		properties: make(map[string]*Property),
		services:   make(map[string]*Service),
	}

	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".yaml") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, trackererr.New(trackererr.KindIO, "ontology.Load", err)
		}
		var df descriptorFile
		if err := yaml.Unmarshal(raw, &df); err != nil {
			return nil, trackererr.New(trackererr.KindParse, "ontology.Load."+name, err)
		}
		if err := reg.merge(df); err != nil {
			return nil, err
		}
	}

	if err := reg.validateAcyclic(); err != nil {
		return nil, err
	}
	reg.resolveKeyMetadataInheritance()
	return reg, nil
}

func (r *Registry) merge(df descriptorFile) error {
	for _, pd := range df.Properties {
		if _, exists := r.properties[pd.URI]; exists {
			return trackererr.Newf(trackererr.KindParse, "ontology.merge", "duplicate property %q", pd.URI)
		}
		globs := make([]glob.Glob, 0)
		r.properties[pd.URI] = &Property{
			URI:            pd.URI,
			DataType:       pd.DataType,
			MultipleValues: pd.MultipleValues,
			Embedded:       pd.Embedded,
			Filtered:       pd.Filtered,
			Delimited:      pd.Delimited,
			Weight:         pd.Weight,
			Parents:        pd.Parents,
			Table:          storageTableFor(pd.DataType),
		}
		_ = globs
		r.propertyOrder = append(r.propertyOrder, pd.URI)
	}
	for _, sd := range df.Services {
		if _, exists := r.services[sd.URI]; exists {
			return trackererr.Newf(trackererr.KindParse, "ontology.merge", "duplicate service %q", sd.URI)
		}
		svc := &Service{
			URI:             sd.URI,
			Parent:          sd.Parent,
			HasMetadata:     sd.HasMetadata,
			HasFulltext:     sd.HasFulltext,
			HasThumbs:       sd.HasThumbs,
			KeyMetadata:     append([]string(nil), sd.KeyMetadata...),
			Mimes:           sd.Mimes,
			MimePrefixes:    sd.MimePrefixes,
			TabularMetadata: sd.TabularMetadata,
			TileMetadata:    sd.TileMetadata,
		}
		for _, pattern := range sd.Mimes {
			g, err := glob.Compile(pattern)
			if err != nil {
				return trackererr.New(trackererr.KindParse, "ontology.merge.mime", err)
			}
			svc.mimeGlobs = append(svc.mimeGlobs, g)
		}
		r.services[sd.URI] = svc
		r.serviceOrder = append(r.serviceOrder, sd.URI)
	}
	return nil
}

// PropertyOf returns the property registered under uri, or a
// KindUnknownProperty error.
func (r *Registry) PropertyOf(uri string) (*Property, error) {
	p, ok := r.properties[uri]
	if !ok {
		return nil, trackererr.Newf(trackererr.KindUnknownProperty, "ontology.PropertyOf", "unknown property %q", uri)
	}
	return p, nil
}

// ServiceOf returns the service registered under uri, or a
// KindUnknownClass error.
func (r *Registry) ServiceOf(uri string) (*Service, error) {
	s, ok := r.services[uri]
	if !ok {
		return nil, trackererr.Newf(trackererr.KindUnknownClass, "ontology.ServiceOf", "unknown class %q", uri)
	}
	return s, nil
}

// StorageTableOf returns the table a property's values are stored in, as
// a pure function over the already-resolved Property.
func StorageTableOf(p *Property) TableName {
	return p.Table
}

// KeyIndexOf returns the zero-based column offset of property within
// service's (possibly inherited) key-metadata list, or -1 if property is
// not a key-metadata column for service.
func KeyIndexOf(s *Service, property string) int {
	for i, uri := range s.KeyMetadata {
		if uri == property {
			return i
		}
	}
	return -1
}

// MatchesMime reports whether mime is claimed by service's Mimes glob
// patterns or MimePrefixes.
func (s *Service) MatchesMime(mime string) bool {
	for _, g := range s.mimeGlobs {
		if g.Match(mime) {
			return true
		}
	}
	for _, prefix := range s.MimePrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

// ServiceTypeID returns the stable small integer the store uses for
// Service.ServiceTypeID, derived from descriptor declaration order. It is
// only stable across the lifetime of one loaded Registry, never
// persisted independently of it, the same way the original engine's
// service type ids were assigned from a fixed, compiled-in enum order.
func (r *Registry) ServiceTypeID(uri string) (int64, bool) {
	for i, candidate := range r.serviceOrder {
		if candidate == uri {
			return int64(i + 1), true
		}
	}
	return 0, false
}

// Services returns every registered service in descriptor declaration order.
func (r *Registry) Services() []*Service {
	out := make([]*Service, 0, len(r.serviceOrder))
	for _, uri := range r.serviceOrder {
		out = append(out, r.services[uri])
	}
	return out
}

// Properties returns every registered property in descriptor declaration order.
func (r *Registry) Properties() []*Property {
	out := make([]*Property, 0, len(r.propertyOrder))
	for _, uri := range r.propertyOrder {
		out = append(out, r.properties[uri])
	}
	return out
}

// resolveKeyMetadataInheritance appends a service's ancestor chain's
// key-metadata (root-first, so ancestor columns occupy the lower indices,
// matching the original engine's single wide table layout) to its own.
// Assumes validateAcyclic has already run.
func (r *Registry) resolveKeyMetadataInheritance() {
	for _, uri := range r.serviceOrder {
		svc := r.services[uri]
		chain := r.ancestorChain(svc)
		merged := make([]string, 0, len(svc.KeyMetadata))
		seen := make(map[string]bool)
		for i := len(chain) - 1; i >= 0; i-- {
			for _, km := range chain[i].KeyMetadata {
				if !seen[km] {
					seen[km] = true
					merged = append(merged, km)
				}
			}
		}
		for _, km := range svc.KeyMetadata {
			if !seen[km] {
				seen[km] = true
				merged = append(merged, km)
			}
		}
		svc.KeyMetadata = merged
	}
}

// ancestorChain returns svc's parents from nearest to furthest, not
// including svc itself.
func (r *Registry) ancestorChain(svc *Service) []*Service {
	var chain []*Service
	cur := svc
	for cur.Parent != "" {
		parent, ok := r.services[cur.Parent]
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

func (r *Registry) String() string {
	return fmt.Sprintf("ontology.Registry{services=%d, properties=%d}", len(r.services), len(r.properties))
}
