package store

// User represents a registered reader. The token is an opaque bearer
// credential; the reader profile fields condition explanation tone and are
// stored verbatim without validation.
type User struct {
	ID        int32
	Username  string
	Token     string
	CreatedTs int64

	// Reader profile
	Background     string
	Interests      string
	LearningStyle  string
	TechnicalLevel string
}

// FindUser specifies the conditions for finding users.
type FindUser struct {
	ID       *int32
	Username *string
	Token    *string
}

// UpdateUser specifies the reader profile fields to update.
type UpdateUser struct {
	ID             int32
	Background     *string
	Interests      *string
	LearningStyle  *string
	TechnicalLevel *string
}
