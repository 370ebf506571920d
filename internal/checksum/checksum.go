package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"rommate/internal/romfile"
)

// ErrUnreadable marks payloads that could not be opened or read to the end.
var ErrUnreadable = errors.New("unreadable")

const blockSize = 8 * 1024

// Digests holds uppercase hexadecimal digests. CRC32 is always eight digits.
type Digests struct {
	CRC32 string `json:"crc32"`
	MD5   string `json:"md5"`
	SHA1  string `json:"sha1"`
}

// IsZero reports whether no digest has been computed.
func (d Digests) IsZero() bool {
	return d.CRC32 == "" && d.MD5 == "" && d.SHA1 == ""
}

// Compute hashes src starting skip bytes into the payload.
func Compute(src *romfile.Source, skip int64) (Digests, error) {
	rc, err := src.Open(skip)
	if err != nil {
		return Digests{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer rc.Close()

	digests, err := ComputeReader(rc)
	if err != nil {
		return Digests{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, src.Display(), err)
	}
	return digests, nil
}

// ComputeReader hashes everything r yields, reading in 8 KiB blocks.
func ComputeReader(r io.Reader) (Digests, error) {
	crcHash := crc32.NewIEEE()
	md5Hash := md5.New()
	sha1Hash := sha1.New()
	w := io.MultiWriter(crcHash, md5Hash, sha1Hash)

	buf := make([]byte, blockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return Digests{}, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Digests{}, err
		}
	}

	return Digests{
		CRC32: fmt.Sprintf("%08X", crcHash.Sum32()),
		MD5:   strings.ToUpper(hex.EncodeToString(md5Hash.Sum(nil))),
		SHA1:  strings.ToUpper(hex.EncodeToString(sha1Hash.Sum(nil))),
	}, nil
}
