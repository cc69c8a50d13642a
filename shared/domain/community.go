package domain

import "time"

type Community struct {
	Id        CommunityId `json:"id"`
	Slug      Slug        `json:"slug"`
	Name      string      `json:"name"`
	Image     string      `json:"image,omitempty"`
	Bio       string      `json:"bio,omitempty"`
	CreatedBy UserId      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

type CommunitySummary struct {
	Id    CommunityId `json:"id"`
	Slug  Slug        `json:"slug"`
	Name  string      `json:"name"`
	Image string      `json:"image,omitempty"`
}

type CommunityCreationData struct {
	Slug      Slug
	Name      string
	Image     string
	Bio       string
	CreatedBy UserId
}
