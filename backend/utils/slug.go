package utils

import (
	"net/url"

	"github.com/gosimple/slug"
)

const (
	avatarBaseURL = "https://api.dicebear.com/7.x/initials/svg"
	// MaxSlugLength matches the slug columns.
	MaxSlugLength = 255
)

func init() {
	// transliteration can grow a name several times over
	slug.MaxLength = MaxSlugLength
}

// Slugify turns a display name into its lowercase hyphenated form.
func Slugify(name string) string {
	return slug.Make(name)
}

// AvatarURL builds the generated avatar image for an enterprise.
func AvatarURL(name string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(name)
}
