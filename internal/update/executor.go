package update

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gammazero/deque"

	"github.com/trackerd/core/internal/invindex"
	"github.com/trackerd/core/internal/ontology"
	"github.com/trackerd/core/internal/sparql/ast"
	"github.com/trackerd/core/internal/store"
	"github.com/trackerd/core/internal/termparser"
	"github.com/trackerd/core/internal/trackererr"
)

// Executor applies update operations to the database and keeps the
// inverted word index in sync, value-typed and safe to share across
// goroutines the way the rest of the engine is (no package-level mutable
// state), matching the Engine value-type design.
type Executor struct {
	db     *sql.DB
	reg    *ontology.Registry
	index  *invindex.Store
	parser *termparser.Parser

	// flushThreshold bounds how many pending fulltext-diff entries
	// accumulate in buffer before ExecuteUpdate flushes them into the
	// inverted index mid-transaction, keeping peak memory bounded on a
	// single very large INSERT DATA block the way tracker_indexer.c's
	// own write buffer did before its periodic sync() calls.
	flushThreshold int
}

// New constructs an Executor over an already-open database connection,
// ontology registry, inverted-index store, and term parser.
func New(db *sql.DB, reg *ontology.Registry, index *invindex.Store, parser *termparser.Parser) *Executor {
	return &Executor{db: db, reg: reg, index: index, parser: parser, flushThreshold: 256}
}

// pendingDiff is one resource's fulltext reindex job, queued until
// flushed into the inverted index.
type pendingDiff struct {
	serviceID   int64
	serviceType uint8
	weight      int16
	oldTerms    map[string]int
	newTerms    map[string]int
}

// ExecuteUpdate applies every operation in ops inside one transaction:
// either all of them land, or none do, matching the original engine's
// all-or-nothing SPARQL Update request semantics.
func (e *Executor) ExecuteUpdate(ctx context.Context, ops []Operation) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return trackererr.New(trackererr.KindQuery, "update.ExecuteUpdate", err)
	}
	defer tx.Rollback()

	var buffer deque.Deque[pendingDiff]

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return trackererr.New(trackererr.KindInterrupted, "update.ExecuteUpdate", err)
		}
		if err := e.applyOperation(ctx, tx, op, &buffer); err != nil {
			return err
		}
		if buffer.Len() >= e.flushThreshold {
			if err := e.flush(&buffer); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return trackererr.New(trackererr.KindQuery, "update.ExecuteUpdate", err)
	}

	return e.flush(&buffer)
}

func (e *Executor) flush(buffer *deque.Deque[pendingDiff]) error {
	for buffer.Len() > 0 {
		d := buffer.PopFront()
		if err := e.index.ApplyDifferential(uint32(d.serviceID), d.serviceType, d.weight, d.oldTerms, d.newTerms); err != nil {
			return trackererr.New(trackererr.KindIO, "update.flush", err)
		}
	}
	return nil
}

func (e *Executor) applyOperation(ctx context.Context, tx *sql.Tx, op Operation, buffer *deque.Deque[pendingDiff]) error {
	resolver := newBlankNodeResolver()

	switch o := op.(type) {
	case InsertData:
		for _, t := range o.Triples {
			if err := e.insertTriple(tx, resolver, t, buffer); err != nil {
				return err
			}
		}
		return nil

	case DeleteData:
		for _, t := range o.Triples {
			if err := e.deleteTriple(tx, t, buffer); err != nil {
				return err
			}
		}
		return nil

	case DeleteWhere:
		return trackererr.Newf(trackererr.KindUnsupported, "update.applyOperation",
			"DELETE WHERE requires a live query match against the WHERE pattern, which this executor defers to the translator; use Modify with an explicit Delete template instead")

	case Modify:
		for _, t := range o.Delete {
			if err := e.deleteTriple(tx, t, buffer); err != nil {
				return err
			}
		}
		for _, t := range o.Insert {
			if err := e.insertTriple(tx, resolver, t, buffer); err != nil {
				return err
			}
		}
		return nil

	default:
		return trackererr.Newf(trackererr.KindUnsupported, "update.applyOperation", "unsupported operation %T", op)
	}
}

// insertTriple resolves subject/object resource ids (minting blank-node
// UUIDs as needed), creates a Service row for an rdf:type triple, or
// writes into the correct property side table otherwise, queuing a
// fulltext differential-index job when the property's DataType is
// fulltext.
func (e *Executor) insertTriple(tx *sql.Tx, resolver *blankNodeResolver, t Triple, buffer *deque.Deque[pendingDiff]) error {
	subjectURI := e.resolveTermURI(resolver, t.Subject)
	resourceID, err := store.ResolveOrCreateResource(tx, subjectURI)
	if err != nil {
		return trackererr.New(trackererr.KindIO, "update.insertTriple", err)
	}

	if t.Predicate == "rdf:type" {
		objectURI := e.resolveTermURI(resolver, t.Object)
		if _, err := e.reg.ServiceOf(objectURI); err != nil {
			return err
		}
		typeID, ok := e.reg.ServiceTypeID(objectURI)
		if !ok {
			return trackererr.Newf(trackererr.KindUnknownClass, "update.insertTriple", "no type id for %q", objectURI)
		}
		_, err := store.CreateService(tx, resourceID, typeID, objectURI)
		return err
	}

	prop, err := e.reg.PropertyOf(t.Predicate)
	if err != nil {
		return err
	}

	svc, err := store.ServiceByResource(tx, resourceID)
	if err != nil {
		return trackererr.New(trackererr.KindQuery, "update.insertTriple",
			fmt.Errorf("resource %q has no Service row (missing rdf:type?): %w", subjectURI, err))
	}

	value := e.resolveTermURI(resolver, t.Object)

	switch prop.Table {
	case ontology.TableServiceMetaData:
		if !prop.MultipleValues {
			if _, err := tx.Exec(`DELETE FROM ServiceMetaData WHERE ServiceID = ? AND PropertyURI = ?`, svc.ID, prop.URI); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO ServiceMetaData (ServiceID, PropertyURI, MetaDataValue, MetaDataIndexValue) VALUES (?, ?, ?, ?)`,
			svc.ID, prop.URI, value, value); err != nil {
			return err
		}
	case ontology.TableServiceNumericMetaData:
		if !prop.MultipleValues {
			if _, err := tx.Exec(`DELETE FROM ServiceNumericMetaData WHERE ServiceID = ? AND PropertyURI = ?`, svc.ID, prop.URI); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO ServiceNumericMetaData (ServiceID, PropertyURI, MetaDataValue) VALUES (?, ?, ?)`,
			svc.ID, prop.URI, value); err != nil {
			return err
		}
	case ontology.TableServiceKeywordMetaData:
		if _, err := tx.Exec(
			`INSERT INTO ServiceKeywordMetaData (ServiceID, PropertyURI, MetaDataValue) VALUES (?, ?, ?)`,
			svc.ID, prop.URI, value); err != nil {
			return err
		}
	default:
		if prop.DataType == ontology.DataTypeResource {
			objectID, err := store.ResolveOrCreateResource(tx, value)
			if err != nil {
				return trackererr.New(trackererr.KindIO, "update.insertTriple", err)
			}
			if !prop.MultipleValues {
				if _, err := tx.Exec(`DELETE FROM ServiceReferenceMetaData WHERE ServiceID = ? AND PropertyURI = ?`, svc.ID, prop.URI); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(
				`INSERT INTO ServiceReferenceMetaData (ServiceID, PropertyURI, ObjectResourceID) VALUES (?, ?, ?)`,
				svc.ID, prop.URI, objectID); err != nil {
				return err
			}
		}
	}

	if prop.DataType == ontology.DataTypeFulltext {
		if err := e.queueFulltextDiff(tx, svc.ID, uint8(svc.ServiceTypeID), int16(prop.Weight), value, buffer); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) deleteTriple(tx *sql.Tx, t Triple, buffer *deque.Deque[pendingDiff]) error {
	subjectURI := t.Subject.Value
	resourceID, err := store.ResolveOrCreateResource(tx, subjectURI)
	if err != nil {
		return err
	}
	svc, err := store.ServiceByResource(tx, resourceID)
	if err != nil {
		return trackererr.New(trackererr.KindQuery, "update.deleteTriple", err)
	}

	prop, err := e.reg.PropertyOf(t.Predicate)
	if err != nil {
		return err
	}

	value := t.Object.Value
	switch prop.Table {
	case ontology.TableServiceMetaData:
		_, err = tx.Exec(`DELETE FROM ServiceMetaData WHERE ServiceID = ? AND PropertyURI = ? AND MetaDataValue = ?`, svc.ID, prop.URI, value)
	case ontology.TableServiceNumericMetaData:
		_, err = tx.Exec(`DELETE FROM ServiceNumericMetaData WHERE ServiceID = ? AND PropertyURI = ? AND MetaDataValue = ?`, svc.ID, prop.URI, value)
	case ontology.TableServiceKeywordMetaData:
		_, err = tx.Exec(`DELETE FROM ServiceKeywordMetaData WHERE ServiceID = ? AND PropertyURI = ? AND MetaDataValue = ?`, svc.ID, prop.URI, value)
	default:
		if prop.DataType == ontology.DataTypeResource {
			var objectID int64
			objectID, err = store.ResolveOrCreateResource(tx, value)
			if err != nil {
				break
			}
			_, err = tx.Exec(`DELETE FROM ServiceReferenceMetaData WHERE ServiceID = ? AND PropertyURI = ? AND ObjectResourceID = ?`, svc.ID, prop.URI, objectID)
		}
	}
	if err != nil {
		return err
	}

	if prop.DataType == ontology.DataTypeFulltext {
		return e.queueFulltextDiff(tx, svc.ID, uint8(svc.ServiceTypeID), int16(prop.Weight), "", buffer)
	}
	return nil
}

// queueFulltextDiff reads the fulltext content currently stored for
// serviceID (before this triple's write lands, fetched from
// ServiceFullText), parses both old and new content into term-count
// maps, and enqueues the pair for ApplyDifferential once flushed: only
// the delta between old and new term counts touches the inverted index,
// not a full re-tokenization of every resource on every write.
func (e *Executor) queueFulltextDiff(tx *sql.Tx, serviceID int64, serviceType uint8, weight int16, newContent string, buffer *deque.Deque[pendingDiff]) error {
	var oldContent string
	_ = tx.QueryRow(`SELECT content FROM ServiceFullText WHERE ServiceID = ?`, serviceID).Scan(&oldContent)

	oldTerms := e.parser.Parse(oldContent)
	newTerms := e.parser.Parse(newContent)

	if err := store.UpdateFullText(tx, serviceID, newContent); err != nil {
		return err
	}

	buffer.PushBack(pendingDiff{
		serviceID:   serviceID,
		serviceType: serviceType,
		weight:      weight,
		oldTerms:    oldTerms,
		newTerms:    newTerms,
	})
	if buffer.Len() >= e.flushThreshold {
		return e.flush(buffer)
	}
	return nil
}

// resolveTermURI returns t's identity as a URI string, minting (or
// reusing) a urn:uuid: identity through resolver when t is a blank node.
func (e *Executor) resolveTermURI(resolver *blankNodeResolver, t ast.Term) string {
	if t.Kind == ast.TermBlank {
		return resolver.resolve(t.Value)
	}
	return t.Value
}
