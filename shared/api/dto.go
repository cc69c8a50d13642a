// Package api holds request and response bodies of the HTTP API.
package api

import "github.com/threadline-dev/threadline/shared/domain"

// Path is an opaque view-cache hint: the page the client was looking at when it
// made the change.

type CreateConvoRequest struct {
	Text        string `json:"text" validate:"required"`
	CommunityId string `json:"community_id,omitempty"`
	Path        string `json:"path,omitempty"`
}

type AddReplyRequest struct {
	Text string `json:"text" validate:"required"`
	Path string `json:"path,omitempty"`
}

type CreatedResponse struct {
	Id string `json:"id"`
}

type DeleteConvoResponse struct {
	Id          domain.ConvoId       `json:"id"`
	Deleted     []domain.ConvoId     `json:"deleted"`
	Authors     []domain.UserId      `json:"authors"`
	Communities []domain.CommunityId `json:"communities"`
}

type OnboardRequest struct {
	Username string `json:"username" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Image    string `json:"image,omitempty" validate:"omitempty,url"`
	Bio      string `json:"bio,omitempty" validate:"max=1000"`
}

type CreateCommunityRequest struct {
	Slug  string `json:"slug" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Image string `json:"image,omitempty" validate:"omitempty,url"`
	Bio   string `json:"bio,omitempty" validate:"max=1000"`
}

type TimelineResponse struct {
	Convos []*domain.ConvoView `json:"convos"`
}
