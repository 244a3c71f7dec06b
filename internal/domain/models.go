package domain

import "strconv"

// Metadata keys shared by documents, segments and stored records
const (
	MetaSource   = "source"
	MetaPage     = "page"
	MetaFormat   = "format"
	MetaChecksum = "sha256"
	MetaPosition = "position"
)

// Document represents one unit of ingested source material
type Document struct {
	Content  string
	Metadata map[string]string
}

// Source returns the source identifier of the document
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Segment is a bounded slice of a document's text plus the document's metadata.
// Start and End are rune offsets into the source document content.
type Segment struct {
	Text     string
	Metadata map[string]string
	Position int
	Start    int
	End      int
}

// Source returns the source identifier inherited from the document
func (s Segment) Source() string {
	return s.Metadata[MetaSource]
}

// VectorRecord is a segment's embedding plus its text and metadata as persisted in the index
type VectorRecord struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32

	// Distance is the cosine distance to the query; only set on search results
	Distance float64
}

// Source returns the source identifier of the record
func (r VectorRecord) Source() string {
	return r.Metadata[MetaSource]
}

// Position returns the sequence position of the originating segment, or -1
func (r VectorRecord) Position() int {
	p, err := strconv.Atoi(r.Metadata[MetaPosition])
	if err != nil {
		return -1
	}
	return p
}

// CopyMetadata returns a shallow copy of md that is never nil
func CopyMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md)+2)
	for k, v := range md {
		out[k] = v
	}
	return out
}
