package domain

type (
	ConvoId     = string
	UserId      = string
	CommunityId = string

	ConvoText = string
	Username  = string
	Slug      = string
)
