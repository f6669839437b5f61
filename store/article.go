package store

// Article represents one archived processing run. The markdown body lives on
// disk under the data directory; the row records provenance and the filename.
type Article struct {
	ID        int64
	UID       string
	UserID    int32
	Title     string
	SourceURL string
	Filename  string
	CreatedTs int64
}

// FindArticle specifies the conditions for finding archived articles.
type FindArticle struct {
	ID     *int64
	UID    *string
	UserID *int32
	Limit  int
	Offset int
}
