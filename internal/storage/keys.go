package storage

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"time"
)

const keyPrefix = "uploads/"

// ObjectKey builds the storage key for one logical upload:
// uploads/{base}-{hash8(fileID)}-{unixMillis}{ext}. Deterministic for a
// given (name, fileID, instant), so a retried upload converges on a stable
// key while distinct files never collide.
func ObjectKey(originalName, fileID string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s%s-%s-%d%s",
		keyPrefix, sanitizeBase(originalName), shortHash(fileID), now.UnixMilli(), ext)
}

// DerivativeName appends the variant suffix to a filename, keeping the
// derivative's extension in sync with its actual codec.
func DerivativeName(originalName, suffix, format string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	return base + "-" + suffix + ext
}

func shortHash(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("%016x", h.Sum64())[:8]
}

// sanitizeBase reduces a user-supplied filename to a safe key segment.
func sanitizeBase(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || strings.Trim(name, "_") == "" {
		return "file"
	}
	return name
}
