package store

// Concept represents one durable unit of learned knowledge. A concept is
// written once when an article is processed and never updated or deleted by
// the pipeline; repeated ingestions of the same source create new records.
type Concept struct {
	ID     int64
	UID    string // derived from source URL, sequence index and creation time
	UserID int32

	Name        string
	Domain      string // coarse category label, "General" when unknown
	Explanation string // embedded document body
	Analogy     string

	SourceURL   string
	SourceTitle string
	LearnedTs   int64

	Embedding []float32
}

// FindConcept specifies the conditions for finding concepts.
type FindConcept struct {
	ID     *int64
	UID    *string
	UserID *int32
	Limit  int
	Offset int
}

// ConceptWithDistance is a vector search result. Distance is cosine distance,
// lower is more similar.
type ConceptWithDistance struct {
	Concept  *Concept
	Distance float32
}

// ConceptVectorSearch represents the options for concept vector search.
type ConceptVectorSearch struct {
	UserID int32     // required, only search concepts of this user
	Vector []float32 // query vector
	Limit  int       // number of results to return, default 3
}

// ConceptStats summarizes a user's learning history.
type ConceptStats struct {
	TotalConcepts  int
	TotalArticles  int
	RecentConcepts []string // up to 5 most recent names, newest first
}
