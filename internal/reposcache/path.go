package reposcache

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// cachePath derives the deterministic, collision-free cache directory for
// a project: <root>/<project_id>_<sanitized_name>_<hash8(url)> (§4.2).
func cachePath(root, projectID, name, url string) string {
	sum := md5.Sum([]byte(url))
	hash8 := hex.EncodeToString(sum[:])[:8]
	sanitized := nonAlnum.ReplaceAllString(name, "_")
	dir := strings.Join([]string{projectID, sanitized, hash8}, "_")
	return filepath.Join(root, dir)
}
