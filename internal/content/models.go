package content

import "time"

// Post is a content item.
type Post struct {
	ID            int64
	Title         string
	Content       string
	Status        string
	Type          string
	AuthorID      int64
	Excerpt       string
	ParentID      int64
	MenuOrder     int
	CommentStatus string
	PingStatus    string
	Language      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MetaEntry holds every value stored under one metadata key, in insertion
// order.
type MetaEntry struct {
	Key    string
	Values []string
}

// Term is a taxonomy term. Terms sharing a GroupID are translations of each
// other.
type Term struct {
	ID       int64
	Taxonomy string
	Name     string
	Slug     string
	Language string
	GroupID  int64
}

// TaxonomyTerms lists the term ids a post carries in one taxonomy.
type TaxonomyTerms struct {
	Taxonomy string
	TermIDs  []int64
}
