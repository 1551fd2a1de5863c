package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// Magic identifies a save bundle. Shared with the console clients.
	Magic = "3DSS"

	// FormatRaw is a bundle with an uncompressed payload.
	FormatRaw = uint32(1)

	// FormatCompressed is a bundle with a zlib-compressed payload.
	FormatCompressed = uint32(2)

	// headerSize is the fixed bundle header length in bytes:
	// magic(4) + format(4) + title id(8) + timestamp(4) + file count(4) + size(4).
	headerSize = 28

	// compressionLevel is the zlib level used for FormatCompressed payloads.
	compressionLevel = 6
)

// File is a single save file carried inside a bundle. Size and SHA256
// describe Data; Decode rejects bundles where they disagree.
type File struct {
	Path   string
	Size   uint32
	SHA256 [sha256.Size]byte
	Data   []byte
}

// NewFile builds a File for raw data, filling in Size and SHA256.
func NewFile(path string, data []byte) File {
	return File{
		Path:   path,
		Size:   uint32(len(data)),
		SHA256: sha256.Sum256(data),
		Data:   data,
	}
}

// Bundle is one title's save data: an ordered set of files plus the
// client-reported timestamp. File order is significant - it is part of
// the content hash.
type Bundle struct {
	TitleID   uint64
	Timestamp uint32
	Files     []File
}

// TitleIDHex renders the title id in its external form: 16 uppercase
// hex characters.
func (b *Bundle) TitleIDHex() string {
	return fmt.Sprintf("%016X", b.TitleID)
}

// TotalSize is the sum of all file sizes in the bundle.
func (b *Bundle) TotalSize() uint64 {
	var total uint64
	for _, f := range b.Files {
		total += uint64(f.Size)
	}
	return total
}

// ContentHash is the hex SHA-256 over all file contents concatenated in
// bundle order. This is the save hash used for sync comparisons; it never
// covers metadata.
func (b *Bundle) ContentHash() string {
	h := sha256.New()
	for _, f := range b.Files {
		h.Write(f.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
