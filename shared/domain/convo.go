package domain

import "time"

// Convo is a post or a reply. A convo with an empty ParentId is top-level.
// AuthorId and CommunityId are empty when unset.
type Convo struct {
	Id          ConvoId     `json:"id"`
	Text        ConvoText   `json:"text"`
	AuthorId    UserId      `json:"author_id,omitempty"`
	CommunityId CommunityId `json:"community_id,omitempty"`
	ParentId    ConvoId     `json:"parent_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (c *Convo) IsTopLevel() bool {
	return c.ParentId == ""
}

// to iterate thru layers: handler -> service -> storage
type ConvoCreationData struct {
	Text        ConvoText
	AuthorId    UserId
	CommunityId CommunityId // optional
	ParentId    ConvoId     // set for replies
	Path        string      // opaque cache-invalidation hint
}

// ConvoView is a convo with its references populated. Children is expanded only up to
// the depth requested by the caller; ReplyCount is always the length of the children
// sequence. TextHTML is the rendered Text.
type ConvoView struct {
	Convo
	TextHTML   string            `json:"text_html,omitempty"`
	Author     *UserSummary      `json:"author,omitempty"`
	Community  *CommunitySummary `json:"community,omitempty"`
	Children   []*ConvoView      `json:"children,omitempty"`
	ReplyCount int               `json:"reply_count"`
}

type ConvoPage struct {
	Convos  []*ConvoView `json:"convos"`
	Page    int          `json:"page"`
	HasNext bool         `json:"has_next"`
}

// DeletionReport summarizes a completed cascading delete.
type DeletionReport struct {
	ConvoId     ConvoId
	Closure     []ConvoId
	Authors     []UserId
	Communities []CommunityId
}
