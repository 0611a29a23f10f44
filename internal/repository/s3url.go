package repository

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildObjectURL returns the canonical virtual-hosted URL for an object.
// Each path segment is percent-encoded individually; "/" stays unescaped.
func BuildObjectURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, strings.Join(segments, "/"))
}

// ParseObjectURL extracts (bucket, key) from a virtual-hosted object URL:
// the bucket is the first host label, the key is the decoded path.
func ParseObjectURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid object URL %q: %w", rawURL, err)
	}

	bucket := strings.Split(u.Host, ".")[0]
	key := strings.TrimPrefix(u.Path, "/")

	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object URL %q: missing bucket or key", rawURL)
	}

	return bucket, key, nil
}
