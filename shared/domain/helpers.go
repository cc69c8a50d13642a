package domain

import (
	"fmt"
	"strings"
	"time"
)

// for debug
func (c *Convo) String() string {
	return fmt.Sprintf("[id:%s, author:%s, community:%s, parent:%s, created:%s, text:%q]",
		c.Id, c.AuthorId, c.CommunityId, c.ParentId, c.CreatedAt.Format(time.StampMilli), c.Text)
}

func (v *ConvoView) String() string {
	var b strings.Builder
	b.WriteString(v.Convo.String())
	if len(v.Children) > 0 {
		b.WriteString(" children:[")
		for i, ch := range v.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ch.String())
		}
		b.WriteString("]")
	}
	return b.String()
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{Id: u.Id, Username: u.Username, Name: u.Name, Image: u.Image}
}

func (c *Community) Summary() *CommunitySummary {
	return &CommunitySummary{Id: c.Id, Slug: c.Slug, Name: c.Name, Image: c.Image}
}
