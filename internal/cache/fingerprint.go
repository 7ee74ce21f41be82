package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
)

// Source kinds a fingerprint can cover.
const (
	SourceFile    = "file"
	SourceURL     = "url"
	SourceCluster = "cluster"
)

// Source identifies one schema source for fingerprinting.
type Source struct {
	// Kind is one of the Source* constants.
	Kind string
	// Name is the path, URL, or cluster identity.
	Name string
	// Content is the raw source bytes.
	Content []byte
}

// Fingerprint hashes one source. Kind and name are part of the hash, so
// two sources with identical bytes still fingerprint differently.
func Fingerprint(src Source) string {
	h := sha256.New()
	h.Write([]byte(src.Kind))
	h.Write([]byte{0})
	h.Write([]byte(src.Name))
	h.Write([]byte{0})
	h.Write(src.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintFiles hashes each file's bytes, keyed by path.
func FingerprintFiles(paths []string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", path, err)
		}
		out[path] = Fingerprint(Source{Kind: SourceFile, Name: path, Content: data})
	}
	return out, nil
}

// Combined reduces a fingerprint set to one digest, independent of map
// order.
func Combined(fingerprints map[string]string) string {
	keys := make([]string, 0, len(fingerprints))
	for k := range fingerprints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(fingerprints[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
