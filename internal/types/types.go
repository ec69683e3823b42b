package types

// Comment is a single extracted comment in document order.
type Comment struct {
	// Username is the commenter's handle, or "unknown" when no profile
	// link could be resolved for the comment node.
	Username string `json:"username" bson:"username"`

	// Text is the whitespace-collapsed comment body. Never empty;
	// empty-text nodes are discarded during harvesting.
	Text string `json:"text" bson:"text"`

	// Time is the display timestamp as rendered, when present.
	Time string `json:"time,omitempty" bson:"time,omitempty"`

	// Likes is the parsed like count, nil when unparseable.
	Likes *int `json:"likes,omitempty" bson:"likes,omitempty"`
}

// VideoRecord is one scraped video. URL is the canonical
// https://<site>/@<user>/video/<id> form when normalization succeeds,
// otherwise the raw browser URL; callers must tolerate both shapes.
type VideoRecord struct {
	URL         string `json:"url" bson:"url"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	// Caption duplicates Description for API compatibility.
	Caption   string    `json:"caption" bson:"caption"`
	Username  string    `json:"username" bson:"username"`
	AuthorURL string    `json:"authorUrl" bson:"author_url"`
	VideoSrc  string    `json:"videoSrc,omitempty" bson:"video_src,omitempty"`
	Comments  []Comment `json:"comments" bson:"comments"`

	// KeywordMentioned is computed at read time by the annotator and is
	// never persisted in the cache.
	KeywordMentioned bool `json:"keywordMentioned" bson:"-"`
}
