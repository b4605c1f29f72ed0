package utils

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// TagsToString converts []string to a JSON string (safe for a text column)
func TagsToString(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

// StringToTags converts the stored string back to []string
func StringToTags(s string) []string {
	if s == "" || s == "[]" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		// Fallback: treat as comma-separated if invalid JSON
		return strings.Split(s, ",")
	}
	return tags
}

// NameFromURL extracts a usable filename from a remote URL, falling back
// to "download" when the path has none.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}
