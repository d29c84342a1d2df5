package news

import (
	"regexp"
	"strings"
)

// allowedTags is the subset of Telegram HTML the digest may carry.
var allowedTags = []string{"b", "/b", "blockquote", "/blockquote"}

// SanitizeHTML escapes everything, then restores the allowed tags, so
// model output cannot smuggle arbitrary markup into the chat.
func SanitizeHTML(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	for _, tag := range allowedTags {
		text = strings.ReplaceAll(text, "&lt;"+tag+"&gt;", "<"+tag+">")
	}
	return text
}

var tagPattern = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// StripTags renders the plain-text fallback used when the HTML send is
// rejected by the platform.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}
