package thesaurus

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DirectoryFingerprint hashes the sorted concatenation of every markdown
// file's path and modification time under dir, so a caller can detect
// whether a KG directory has changed since it last built a thesaurus from
// it without re-reading and re-parsing every file.
func DirectoryFingerprint(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &ProfileError{Path: dir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return "", &ProfileError{Path: path, Err: err}
		}
		h.Write([]byte(path))
		h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
