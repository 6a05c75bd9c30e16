package vectorindex

import (
	"context"

	"github.com/poiesic/relata/core"
)

// Metric identifies the distance metric of an index.
type Metric string

const (
	// MetricCosine is the only metric the related-questions pipeline uses.
	MetricCosine Metric = "cosine"
)

// IndexSpec describes an index to be created or validated.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
	Cloud     string
	Region    string
}

// IndexStatus reports the readiness and shape of an existing index.
type IndexStatus struct {
	Ready     bool
	Dimension int
	Metric    Metric
}

// QueryRequest is a similarity query against an index.
// TenantID scopes the query; only vectors tagged with the same tenant
// are candidates.
type QueryRequest struct {
	Vector   []float32
	TopK     int
	TenantID string
}

// Candidate is a single similarity match, ordered most similar first.
// Score is cosine similarity in [0, 1] for unit vectors.
type Candidate struct {
	ID       string
	Score    float32
	Title    string
	TenantID string
}

// Index provides vector operations on a single named index.
type Index interface {
	// Upsert inserts or replaces vectors by external ID.
	Upsert(ctx context.Context, vectors ...*core.Vector) error

	// Query returns up to TopK candidates for the request vector,
	// restricted to the request's tenant, ordered by score descending.
	Query(ctx context.Context, req *QueryRequest) ([]*Candidate, error)

	// Fetch retrieves stored vectors by external ID.
	// Missing IDs are skipped; the result holds metadata, not raw values.
	Fetch(ctx context.Context, ids ...string) ([]*core.Vector, error)
}

// Provider abstracts the vector index service.
type Provider interface {
	// ListIndexes returns the names of all existing indexes.
	ListIndexes(ctx context.Context) ([]string, error)

	// CreateIndex provisions a new index. Creation may be asynchronous;
	// poll DescribeIndex until Ready.
	CreateIndex(ctx context.Context, spec *IndexSpec) error

	// DescribeIndex reports the status of an index.
	// Returns ErrIndexNotFound if the index doesn't exist.
	DescribeIndex(ctx context.Context, name string) (*IndexStatus, error)

	// Index returns a handle for operations on an existing index.
	Index(name string) Index
}
