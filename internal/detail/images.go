package detail

import (
	"regexp"
	"strings"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// imageRef matches tracker image markup: ![alt](url) and ![alt](url =WxH).
var imageRef = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)(?:\s*=[^)]+)?\)`)

// relativeLink matches markdown links whose target is root-relative.
var relativeLink = regexp.MustCompile(`\[([^\]]+)\]\((/[^)]+)\)`)

// ExtractImageURLs returns the URL of every image reference in text, in
// order of appearance.
func ExtractImageURLs(text string) []string {
	var urls []string
	for _, m := range imageRef.FindAllStringSubmatch(text, -1) {
		urls = append(urls, m[2])
	}
	return urls
}

// collectImageURLs extracts image URLs from every text, deduplicated in
// first-seen order.
func collectImageURLs(texts ...string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, text := range texts {
		for _, u := range ExtractImageURLs(text) {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// ReplaceImageSources points every image reference whose URL was resolved
// at its data URI. Other references are left exactly as written.
func ReplaceImageSources(text string, attachments tracker.AttachmentMap) string {
	if len(attachments) == 0 {
		return text
	}
	return imageRef.ReplaceAllStringFunc(text, func(match string) string {
		m := imageRef.FindStringSubmatch(match)
		dataURI, ok := attachments[m[2]]
		if !ok {
			return match
		}
		return "![" + m[1] + "](" + dataURI + ")"
	})
}

// TerminalMarkdown rewrites text for a terminal renderer, which cannot show
// inline images: every image becomes a link to the absolute attachment URL,
// and root-relative links are prefixed with front.
func TerminalMarkdown(text, front string, attachments tracker.AttachmentMap) string {
	text = imageRef.ReplaceAllStringFunc(text, func(match string) string {
		m := imageRef.FindStringSubmatch(match)
		name := m[1]
		if name == "" {
			name = "image"
		}
		if _, ok := attachments[m[2]]; !ok {
			name += " (unavailable)"
		}
		return "[📎 " + name + "](" + absolute(front, m[2]) + ")"
	})
	return relativeLink.ReplaceAllStringFunc(text, func(match string) string {
		m := relativeLink.FindStringSubmatch(match)
		return "[" + m[1] + "](" + absolute(front, m[2]) + ")"
	})
}

func absolute(front, u string) string {
	if front != "" && strings.HasPrefix(u, "/") {
		return front + u
	}
	return u
}
