// Package store owns the SQLite metadata database: schema creation, the
// Resource/Service core tables, per-datatype side tables, the FTS5
// full-text index, and the tracker_triples view the translator compiles
// SPARQL graph patterns against.
package store

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates every table, index, and view the engine needs.
// Table creation runs in one transaction for atomicity; the FTS5 virtual
// table and the tracker_triples view are created outside it, matching the
// teacher's own split in internal/storage/schema.go (virtual tables
// cannot participate in the same transaction as ordinary DDL under some
// SQLite builds).
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"Resource", createResourceTable},
		{"Service", createServiceTable},
		{"ServiceMetaData", createServiceMetaDataTable},
		{"ServiceNumericMetaData", createServiceNumericMetaDataTable},
		{"ServiceKeywordMetaData", createServiceKeywordMetaDataTable},
		{"ServiceReferenceMetaData", createServiceReferenceMetaDataTable},
		{"BackupOverlay", createBackupOverlayTable},
		{"cache_metadata", createCacheMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range allIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	if _, err := db.Exec(createFulltextTable); err != nil {
		return fmt.Errorf("failed to create fulltext index: %w", err)
	}
	if _, err := db.Exec(createTriplesView); err != nil {
		return fmt.Errorf("failed to create tracker_triples view: %w", err)
	}

	return bootstrapMetadata(db)
}

// Resource is every subject/object URI the store has ever seen, given a
// stable integer id so side tables can join on an integer rather than a
// repeated text URI, matching the id-interning role Resource/Service play
// in the original engine's ServiceID-keyed schema.
const createResourceTable = `
CREATE TABLE IF NOT EXISTS Resource (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	URI TEXT NOT NULL UNIQUE
)`

// Service is one ontology-typed entity: a row per indexed file, contact,
// email, etc., with its class. No key-metadata columns are declared here;
// every property value lives in the side tables below.
const createServiceTable = `
CREATE TABLE IF NOT EXISTS Service (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	ResourceID INTEGER NOT NULL REFERENCES Resource(ID),
	ServiceTypeID INTEGER NOT NULL,
	ServiceURI TEXT NOT NULL,
	Enabled INTEGER NOT NULL DEFAULT 1
)`

// ServiceMetaData holds string/indexed-text/double valued properties,
// one row per (service, property, value) triple so multi-valued
// properties need no schema change.
const createServiceMetaDataTable = `
CREATE TABLE IF NOT EXISTS ServiceMetaData (
	ServiceID INTEGER NOT NULL REFERENCES Service(ID),
	PropertyURI TEXT NOT NULL,
	MetaDataValue TEXT,
	MetaDataIndexValue TEXT
)`

// ServiceNumericMetaData holds integer/date/datetime valued properties as
// an INTEGER column (dates stored as Unix epoch seconds) so range filters
// translate to plain numeric comparisons.
const createServiceNumericMetaDataTable = `
CREATE TABLE IF NOT EXISTS ServiceNumericMetaData (
	ServiceID INTEGER NOT NULL REFERENCES Service(ID),
	PropertyURI TEXT NOT NULL,
	MetaDataValue INTEGER
)`

// ServiceKeywordMetaData holds keyword-typed (tag-like) properties,
// separated from ServiceMetaData so keyword equality filters can use a
// narrower, more selective index.
const createServiceKeywordMetaDataTable = `
CREATE TABLE IF NOT EXISTS ServiceKeywordMetaData (
	ServiceID INTEGER NOT NULL REFERENCES Service(ID),
	PropertyURI TEXT NOT NULL,
	MetaDataValue TEXT NOT NULL
)`

// ServiceReferenceMetaData holds resource-typed properties: an edge from
// one resource to another (nie:isPartOf, knows, etc.), stored as the
// object's Resource.ID rather than its URI text; tracker_triples exposes
// it as that ID cast to TEXT, which property-path joins chain through.
const createServiceReferenceMetaDataTable = `
CREATE TABLE IF NOT EXISTS ServiceReferenceMetaData (
	ServiceID INTEGER NOT NULL REFERENCES Service(ID),
	PropertyURI TEXT NOT NULL,
	ObjectResourceID INTEGER NOT NULL REFERENCES Resource(ID)
)`

// BackupOverlay stores user-authored metadata for an embedded service
// (e.g. a user comment on an email that itself lives inside a maildir
// file this engine does not own), so a later full reindex of the
// containing file does not clobber user edits it never produced itself.
const createBackupOverlayTable = `
CREATE TABLE IF NOT EXISTS BackupOverlay (
	ServiceID INTEGER NOT NULL REFERENCES Service(ID),
	PropertyURI TEXT NOT NULL,
	MetaDataValue TEXT,
	PRIMARY KEY (ServiceID, PropertyURI)
)`

const createCacheMetadataTable = `
CREATE TABLE IF NOT EXISTS cache_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// createFulltextTable mirrors internal/storage/fts_index.go's
// `tokenize = 'unicode61 remove_diacritics 0'` choice. The content column
// holds the raw property text as written by the update executor;
// internal/termparser's folding applies only to the inverted word index.
const createFulltextTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS ServiceFullText USING fts5(
	ServiceID UNINDEXED,
	content,
	tokenize = 'unicode61 remove_diacritics 0'
)`

// createTriplesView presents every side table as a uniform
// (subject, predicate, object) relation so the translator can compile a
// SPARQL triple pattern into one join against a single view regardless
// of which physical table the predicate's property actually lives in.
const createTriplesView = `
CREATE VIEW IF NOT EXISTS tracker_triples AS
	SELECT s.ResourceID AS subject, 'rdf:type' AS predicate, s.ServiceURI AS object
		FROM Service s
	UNION ALL
	SELECT s.ResourceID AS subject, m.PropertyURI AS predicate, m.MetaDataValue AS object
		FROM ServiceMetaData m JOIN Service s ON s.ID = m.ServiceID
	UNION ALL
	SELECT s.ResourceID AS subject, n.PropertyURI AS predicate, CAST(n.MetaDataValue AS TEXT) AS object
		FROM ServiceNumericMetaData n JOIN Service s ON s.ID = n.ServiceID
	UNION ALL
	SELECT s.ResourceID AS subject, k.PropertyURI AS predicate, k.MetaDataValue AS object
		FROM ServiceKeywordMetaData k JOIN Service s ON s.ID = k.ServiceID
	UNION ALL
	SELECT s.ResourceID AS subject, r.PropertyURI AS predicate, CAST(r.ObjectResourceID AS TEXT) AS object
		FROM ServiceReferenceMetaData r JOIN Service s ON s.ID = r.ServiceID
`

func allIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_service_resource ON Service(ResourceID)",
		"CREATE INDEX IF NOT EXISTS idx_service_type ON Service(ServiceTypeID)",
		"CREATE INDEX IF NOT EXISTS idx_smd_service_prop ON ServiceMetaData(ServiceID, PropertyURI)",
		"CREATE INDEX IF NOT EXISTS idx_smd_value ON ServiceMetaData(MetaDataIndexValue)",
		"CREATE INDEX IF NOT EXISTS idx_snmd_service_prop ON ServiceNumericMetaData(ServiceID, PropertyURI)",
		"CREATE INDEX IF NOT EXISTS idx_snmd_value ON ServiceNumericMetaData(PropertyURI, MetaDataValue)",
		"CREATE INDEX IF NOT EXISTS idx_skmd_service_prop ON ServiceKeywordMetaData(ServiceID, PropertyURI)",
		"CREATE INDEX IF NOT EXISTS idx_skmd_value ON ServiceKeywordMetaData(PropertyURI, MetaDataValue)",
	}
}

// bootstrapMetadata seeds the schema version, read by GetSchemaVersion the
// way internal/storage/schema.go bootstraps cache_metadata.
func bootstrapMetadata(db *sql.DB) error {
	_, err := db.Exec(`INSERT OR IGNORE INTO cache_metadata (key, value) VALUES ('schema_version', '1')`)
	return err
}

// GetSchemaVersion reads the schema_version bootstrap key.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM cache_metadata WHERE key = 'schema_version'`).Scan(&v)
	return v, err
}

// UpdateSchemaVersion rewrites the schema_version bootstrap key, used by a
// future migration path.
func UpdateSchemaVersion(db *sql.DB, version string) error {
	_, err := db.Exec(`UPDATE cache_metadata SET value = ? WHERE key = 'schema_version'`, version)
	return err
}
