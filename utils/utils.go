package utils

import (
	"archive/tar"
	"bytes"
	"sort"
	"strings"
	"time"
)

// TrimTrailingWhitespace removes trailing spaces, tabs, carriage returns and
// newlines. Leading and inner whitespace is preserved.
func TrimTrailingWhitespace(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}

// ShellQuote wraps s in single quotes so a POSIX shell reads it literally.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellQuoteSlice quotes every element and joins them with spaces.
func ShellQuoteSlice(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// CreateTarArchive builds an in-memory tar archive holding the given files.
// Entries are written in name order so archives are reproducible.
func CreateTarArchive(files map[string][]byte, uid, gid int) (*bytes.Buffer, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := &bytes.Buffer{}
	tarWriter := tar.NewWriter(buf)
	now := time.Now()
	for _, name := range names {
		content := files[name]
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(content)),
			ModTime: now,
			Uid:     uid,
			Gid:     gid,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tarWriter.Write(content); err != nil {
			return nil, err
		}
	}
	if err := tarWriter.Close(); err != nil {
		return nil, err
	}

	return buf, nil
}
