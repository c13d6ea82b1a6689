// Package clippings parses Kindle "My Clippings.txt" exports.
package clippings

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type identifies the kind of a Kindle clipping.
type Type string

const (
	TypeHighlight Type = "Highlight"
	TypeNote      Type = "Note"
	TypeBookmark  Type = "Bookmark"
)

// Clipping is a single entry from a My Clippings file. Page, LocationEnd and
// Content are zero-valued when the entry omits them (bookmarks carry no
// content, older devices report no page).
type Clipping struct {
	BookTitle     string
	Author        string
	Type          Type
	Page          int
	LocationStart int
	LocationEnd   int
	DateAdded     time.Time
	Content       string
}

const separator = "=========="

// Kindle renders the date as e.g. "Tuesday, 21 March 2023 22:08:17".
const dateLayout = "Monday, 2 January 2006 15:04:05"

var (
	// Title lines look like "Book Title (Author Name)".
	authorPattern = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)

	// Metadata lines vary by device generation:
	//   - Your Highlight at location 95-96 | Added on Tuesday, 21 March 2023 22:08:17
	//   - Your Highlight on page 5 | location 35-36 | Added on Wednesday, 9 August 2023 23:26:06
	//   - Your Bookmark on page 72 | location 932 | Added on Sunday, 13 July 2025 23:35:53
	metadataPattern = regexp.MustCompile(
		`^- Your (Highlight|Note|Bookmark)` +
			`(?: on page (\d+))?` +
			`(?: \| )?` +
			`(?: ?(?:at )?location (\d+)(?:-(\d+))?)?` +
			` \| Added on (.+)$`)
)

// ParseFile reads and parses a My Clippings.txt file.
func ParseFile(path string) ([]Clipping, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clippings file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse decodes the clippings stream. Entries that do not follow the Kindle
// format are skipped rather than failing the whole file, since devices
// occasionally write truncated entries.
func Parse(r io.Reader) ([]Clipping, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read clippings: %w", err)
	}

	text := strings.TrimPrefix(string(raw), "\uFEFF")

	var parsed []Clipping
	for _, entry := range strings.Split(text, separator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		clipping, ok := parseEntry(entry)
		if !ok {
			continue
		}
		parsed = append(parsed, clipping)
	}
	return parsed, nil
}

func parseEntry(entry string) (Clipping, bool) {
	lines := strings.Split(entry, "\n")
	if len(lines) < 2 {
		return Clipping{}, false
	}

	// The device repeats the BOM before every entry on some firmware versions.
	titleLine := strings.TrimPrefix(strings.TrimSpace(lines[0]), "\uFEFF")

	clipping := Clipping{BookTitle: titleLine}
	if m := authorPattern.FindStringSubmatch(titleLine); m != nil {
		clipping.BookTitle = strings.TrimSpace(m[1])
		clipping.Author = strings.TrimSpace(m[2])
	}

	m := metadataPattern.FindStringSubmatch(strings.TrimSpace(lines[1]))
	if m == nil {
		return Clipping{}, false
	}

	clipping.Type = Type(m[1])
	clipping.Page = atoiOrZero(m[2])
	clipping.LocationStart = atoiOrZero(m[3])
	clipping.LocationEnd = atoiOrZero(m[4])

	date, err := time.Parse(dateLayout, m[5])
	if err != nil {
		date = time.Now()
	}
	clipping.DateAdded = date.UTC()

	// Content starts after the blank line following the metadata.
	if len(lines) > 3 {
		clipping.Content = strings.TrimSpace(strings.Join(lines[3:], "\n"))
	}

	return clipping, true
}

func atoiOrZero(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
