package model

// MaxTagsPerBookmark is the tag limit enforced when bookmarks are added or edited.
const MaxTagsPerBookmark = 7

// Bookmark represents a saved URL with tags.
// CategoryID is the owning category; in the nested application view it
// mirrors the parent Category.ID.
type Bookmark struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Tags       []string `json:"tags"`
	CategoryID int64    `json:"categoryId,omitempty"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title string
	URL   string
	Tags  []string
}

// NewBookmark creates a Bookmark with a generated ID.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	return Bookmark{
		ID:    NewID(),
		Title: params.Title,
		URL:   params.URL,
		Tags:  tags,
	}
}

// HasTag reports whether the bookmark carries tag.
func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (b Bookmark) clone() Bookmark {
	c := b
	c.Tags = append([]string{}, b.Tags...)
	return c
}
