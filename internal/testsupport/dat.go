package testsupport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"rommate/internal/checksum"
)

// ROM is one rom record of a test DAT. Empty fields are omitted.
type ROM struct {
	Name string
	Size int64
	CRC  string
	MD5  string
	SHA1 string
}

// Game is one game record of a test DAT.
type Game struct {
	Name string
	ROMs []ROM
}

// ROMFor builds a record whose digests describe data exactly.
func ROMFor(t testing.TB, name string, data []byte) ROM {
	t.Helper()

	d, err := checksum.ComputeReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("digest %s: %v", name, err)
	}
	return ROM{Name: name, Size: int64(len(data)), CRC: d.CRC32, MD5: d.MD5, SHA1: d.SHA1}
}

// WriteDAT writes a Logiqx-style DAT holding games to path on fs.
func WriteDAT(t testing.TB, fs afero.Fs, path string, games ...Game) {
	t.Helper()

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n<datafile>\n\t<header><name>test</name><version>1</version></header>\n")
	for _, g := range games {
		fmt.Fprintf(&b, "\t<game name=\"%s\">\n", escape(g.Name))
		for _, r := range g.ROMs {
			fmt.Fprintf(&b, "\t\t<rom name=\"%s\" size=\"%d\"", escape(r.Name), r.Size)
			for _, attr := range [][2]string{{"crc", r.CRC}, {"md5", r.MD5}, {"sha1", r.SHA1}} {
				if attr[1] != "" {
					fmt.Fprintf(&b, " %s=\"%s\"", attr[0], strings.ToLower(attr[1]))
				}
			}
			b.WriteString("/>\n")
		}
		b.WriteString("\t</game>\n")
	}
	b.WriteString("</datafile>\n")
	WriteFile(t, fs, path, []byte(b.String()))
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
