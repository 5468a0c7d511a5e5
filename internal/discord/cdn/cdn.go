// Package cdn builds media URLs for user avatars and banners.
package cdn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// BaseURL is the media CDN root.
const BaseURL = "https://cdn.discordapp.com"

const (
	// DashboardSize is the avatar size shown on dashboard cards.
	DashboardSize = 256
	// EmbedSize is the avatar and banner size used in notifications.
	EmbedSize = 1024
)

// IsAnimated reports whether an asset hash refers to an animated image.
func IsAnimated(hash string) bool {
	return strings.HasPrefix(hash, "a_")
}

func extension(hash string) string {
	if IsAnimated(hash) {
		return "gif"
	}

	return "png"
}

// DefaultAvatarIndex returns the built-in avatar index for a user. Migrated
// usernames (discriminator "0" or empty) derive it from the ID, legacy tags
// from the discriminator.
func DefaultAvatarIndex(userID snowflake.ID, discriminator string) int {
	if discriminator != "" && discriminator != "0" {
		if n, err := strconv.Atoi(discriminator); err == nil {
			return n % 5
		}
	}

	return int((uint64(userID) >> 22) % 6)
}

// DefaultAvatarURL returns the built-in avatar of a user without a custom one.
func DefaultAvatarURL(userID snowflake.ID, discriminator string) string {
	return fmt.Sprintf("%s/embed/avatars/%d.png", BaseURL, DefaultAvatarIndex(userID, discriminator))
}

// AvatarURL returns the avatar of a user at the given size. Animated avatars
// use .gif, static ones .png, and users without one get the default avatar.
func AvatarURL(userID snowflake.ID, hash, discriminator string, size int) string {
	if hash == "" {
		return DefaultAvatarURL(userID, discriminator)
	}

	return fmt.Sprintf("%s/avatars/%d/%s.%s?size=%d", BaseURL, uint64(userID), hash, extension(hash), size)
}

// BannerURL returns the profile banner of a user, or "" when there is none.
func BannerURL(userID snowflake.ID, hash string, size int) string {
	if hash == "" {
		return ""
	}

	return fmt.Sprintf("%s/banners/%d/%s.%s?size=%d", BaseURL, uint64(userID), hash, extension(hash), size)
}
