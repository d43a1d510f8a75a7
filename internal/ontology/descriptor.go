package ontology

// DataType is the property value domain: the set of storage kinds a
// property's values can take.
type DataType string

const (
	DataTypeResource     DataType = "resource"
	DataTypeString       DataType = "string"
	DataTypeIndexedText  DataType = "indexed-text"
	DataTypeFulltext     DataType = "fulltext"
	DataTypeInteger      DataType = "integer"
	DataTypeDouble       DataType = "double"
	DataTypeDate         DataType = "date"
	DataTypeDateTime     DataType = "datetime"
	DataTypeBoolean      DataType = "boolean"
	DataTypeKeyword      DataType = "keyword"
)

// TableName is the storage table a property's values live in, inferred from
// its DataType by storageTableFor.
type TableName string

const (
	TableServiceMetaData        TableName = "ServiceMetaData"        // string / indexed-text / double
	TableServiceNumericMetaData TableName = "ServiceNumericMetaData" // integer / date / datetime
	TableServiceKeywordMetaData TableName = "ServiceKeywordMetaData" // keyword
	TableFTS                    TableName = "fts5"                   // fulltext, external virtual table
	TableNone                   TableName = ""                       // resource type; values go to ServiceReferenceMetaData
)

// PropertyDescriptor is the on-disk (YAML) shape of one property entry.
type PropertyDescriptor struct {
	URI            string   `yaml:"uri"`
	DataType       DataType `yaml:"dataType"`
	MultipleValues bool     `yaml:"multipleValues"`
	Embedded       bool     `yaml:"embedded"`
	Filtered       bool     `yaml:"filtered"`
	Delimited      bool     `yaml:"delimited"`
	Weight         int      `yaml:"weight"`
	Parents        []string `yaml:"parents"` // alias/child properties this one subsumes
}

// ServiceDescriptor is the on-disk shape of one service (ontology class)
// entry. KeyMetadata is the ordered list of properties denormalised onto
// the service's primary table as key-metadata columns.
type ServiceDescriptor struct {
	URI             string   `yaml:"uri"`
	Parent          string   `yaml:"parent"`
	HasMetadata     bool     `yaml:"hasMetadata"`
	HasFulltext     bool     `yaml:"hasFulltext"`
	HasThumbs       bool     `yaml:"hasThumbs"`
	KeyMetadata     []string `yaml:"keyMetadata"`
	Mimes           []string `yaml:"mimes"`
	MimePrefixes    []string `yaml:"mimePrefixes"`
	TabularMetadata bool     `yaml:"tabularMetadata"`
	TileMetadata    bool     `yaml:"tileMetadata"`
}

// descriptorFile is the top-level YAML document shape, allowing services
// and properties to be declared together or split across multiple files
// that are all loaded into one Registry.
type descriptorFile struct {
	Services   []ServiceDescriptor  `yaml:"services"`
	Properties []PropertyDescriptor `yaml:"properties"`
}

// storageTableFor implements the data-type → table rule:
// string/index/double → ServiceMetaData; integer/date/datetime →
// ServiceNumericMetaData; keyword → ServiceKeywordMetaData; fulltext →
// external FTS; resource reports TableNone here since its destination,
// ServiceReferenceMetaData, is chosen by the update executor directly
// (keyed off DataType, not a TableName constant) rather than by this
// function.
func storageTableFor(dt DataType) TableName {
	switch dt {
	case DataTypeString, DataTypeIndexedText, DataTypeDouble:
		return TableServiceMetaData
	case DataTypeInteger, DataTypeDate, DataTypeDateTime:
		return TableServiceNumericMetaData
	case DataTypeKeyword:
		return TableServiceKeywordMetaData
	case DataTypeFulltext:
		return TableFTS
	case DataTypeResource:
		return TableNone
	default:
		return TableNone
	}
}
