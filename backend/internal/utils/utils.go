package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/errors"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
	slugRegex     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)
)

const maxNameLength = 50

type ConvoTextValidator struct {
	MaxLength int
}

func (v *ConvoTextValidator) Text(text domain.ConvoText) error {
	if strings.TrimSpace(text) == "" {
		return &errors.ValidationError{Message: "Text is required"}
	}
	if utf8.RuneCountInString(text) > v.MaxLength {
		return &errors.ValidationError{Message: "Text is too long"}
	}
	return nil
}

type ProfileValidator struct{}

func (v *ProfileValidator) Username(username domain.Username) error {
	if !usernameRegex.MatchString(username) {
		return &errors.ValidationError{Message: "Username must be 3-30 characters of a-z, 0-9 or _"}
	}
	return nil
}

func (v *ProfileValidator) Name(name string) error {
	return validateName(name)
}

type CommunityValidator struct{}

func (v *CommunityValidator) Slug(slug domain.Slug) error {
	if !slugRegex.MatchString(slug) {
		return &errors.ValidationError{Message: "Slug must be 3-50 characters of a-z, 0-9 or -, not starting or ending with -"}
	}
	return nil
}

func (v *CommunityValidator) Name(name string) error {
	return validateName(name)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &errors.ValidationError{Message: "Name is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return &errors.ValidationError{Message: "Name is too long"}
	}
	return nil
}
