package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"rommate/internal/systems"
)

// Entry is one ROM record of a catalog.
type Entry struct {
	Game  string
	File  string
	Size  int64
	CRC32 string
	MD5   string
	SHA1  string
}

// Catalog indexes a system's entries by CRC32. Entries sharing a CRC32 are
// all retained in document order.
type Catalog struct {
	System  systems.System
	Path    string
	Name    string
	Version string

	entries []Entry
	byCRC   map[string][]int
}

func newCatalog(system systems.System, path string) *Catalog {
	return &Catalog{System: system, Path: path, byCRC: make(map[string][]int)}
}

// Len returns the number of indexed ROM records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Empty reports whether the catalog has no records.
func (c *Catalog) Empty() bool {
	return c.Len() == 0
}

// Entries returns every record in document order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// All iterates over every record in document order.
func (c *Catalog) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		if c == nil {
			return
		}
		for i, e := range c.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// At returns the record at document position i.
func (c *Catalog) At(i int) Entry {
	return c.entries[i]
}

// Lookup returns every record whose CRC32 equals crc, in document order.
func (c *Catalog) Lookup(crc string) []Entry {
	if c == nil {
		return nil
	}
	idx := c.byCRC[strings.ToUpper(strings.TrimSpace(crc))]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.entries[i])
	}
	return out
}

// Titles returns the number of distinct game names.
func (c *Catalog) Titles() int {
	if c == nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		seen[e.Game] = struct{}{}
	}
	return len(seen)
}

func (c *Catalog) add(e Entry) {
	c.byCRC[e.CRC32] = append(c.byCRC[e.CRC32], len(c.entries))
	c.entries = append(c.entries, e)
}

type datHeader struct {
	Name    string `xml:"name"`
	Version string `xml:"version"`
}

type datROM struct {
	Name string `xml:"name,attr"`
	Size string `xml:"size,attr"`
	CRC  string `xml:"crc,attr"`
	MD5  string `xml:"md5,attr"`
	SHA1 string `xml:"sha1,attr"`
}

type datGame struct {
	Name string   `xml:"name,attr"`
	ROMs []datROM `xml:"rom"`
}

// Parse reads a DAT document. Every rom record with a non-empty crc attribute
// is indexed; digests are uppercased and missing attributes stay empty.
func Parse(r io.Reader, system systems.System, path string) (*Catalog, error) {
	cat := newCatalog(system, path)
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "header":
			var h datHeader
			if err := dec.DecodeElement(&h, &start); err != nil {
				return nil, fmt.Errorf("parse %s header: %w", path, err)
			}
			cat.Name = strings.TrimSpace(h.Name)
			cat.Version = strings.TrimSpace(h.Version)
		case "game", "machine":
			var g datGame
			if err := dec.DecodeElement(&g, &start); err != nil {
				return nil, fmt.Errorf("parse %s game: %w", path, err)
			}
			addGame(cat, g)
		}
	}
	return cat, nil
}

func addGame(cat *Catalog, g datGame) {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		name = "Unknown"
	}
	for _, rom := range g.ROMs {
		crc := normalizeDigest(rom.CRC)
		if crc == "" {
			continue
		}
		cat.add(Entry{
			Game:  name,
			File:  rom.Name,
			Size:  parseSize(rom.Size),
			CRC32: crc,
			MD5:   normalizeDigest(rom.MD5),
			SHA1:  normalizeDigest(rom.SHA1),
		})
	}
}

func normalizeDigest(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// parseSize returns -1 for missing or malformed sizes so they never equal a real file size.
func parseSize(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
