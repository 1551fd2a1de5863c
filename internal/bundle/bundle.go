// Package bundle implements the 3DSS binary archive format used to carry
// one title's save files between console clients and the server.
//
// Wire layout (all integers little-endian except the title id):
//
//	[4B] magic "3DSS"
//	[4B] format: 1 = raw payload, 2 = zlib-compressed payload
//	[8B] title id (big-endian uint64)
//	[4B] client timestamp (unix epoch seconds)
//	[4B] file count
//	[4B] size: format 1 = informational total file-bytes size,
//	           format 2 = exact uncompressed payload length
//	[..] payload: file table followed by raw file bytes in table order.
//	     Table entry: [2B path len][path utf-8][4B file size][32B sha256].
//
// The big-endian title id matches the console platform's numeric
// convention for title identifiers; every other field is the platform's
// native little-endian. Both must be reproduced exactly for the clients
// to interoperate.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Encode serializes a bundle. With compress set, the payload is
// zlib-compressed (format 2) and the size field records the exact
// uncompressed payload length; otherwise (format 1) the size field is the
// informational total of all file sizes.
func Encode(b *Bundle, compress bool) ([]byte, error) {
	payload := buildPayload(b)

	var buf bytes.Buffer
	buf.WriteString(Magic)

	format := FormatRaw
	sizeField := uint32(b.TotalSize())
	if compress {
		format = FormatCompressed
		sizeField = uint32(len(payload))
	}

	writeUint32(&buf, format)

	var tid [8]byte
	binary.BigEndian.PutUint64(tid[:], b.TitleID)
	buf.Write(tid[:])

	writeUint32(&buf, b.Timestamp)
	writeUint32(&buf, uint32(len(b.Files)))
	writeUint32(&buf, sizeField)

	if compress {
		zw, err := zlib.NewWriterLevel(&buf, compressionLevel)
		if err != nil {
			return nil, fmt.Errorf("bundle: compress: %w", err)
		}
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("bundle: compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("bundle: compress: %w", err)
		}
	} else {
		buf.Write(payload)
	}

	return buf.Bytes(), nil
}

// Decode parses bundle bytes, verifying structure and per-file hashes.
// It accepts both format 1 (raw) and format 2 (compressed) bundles.
func Decode(data []byte) (*Bundle, error) {
	if len(data) < headerSize {
		return nil, ErrTooSmall
	}

	if string(data[0:4]) != Magic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, data[0:4])
	}

	format := binary.LittleEndian.Uint32(data[4:8])
	if format != FormatRaw && format != FormatCompressed {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}

	titleID := binary.BigEndian.Uint64(data[8:16])
	timestamp := binary.LittleEndian.Uint32(data[16:20])
	fileCount := binary.LittleEndian.Uint32(data[20:24])
	sizeField := binary.LittleEndian.Uint32(data[24:28])

	payload := data[headerSize:]
	if format == FormatCompressed {
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		// The declared size bounds inflation: read at most one byte past
		// it, so a stream expanding beyond the field fails the size check
		// without ever being fully inflated.
		inflated, err := io.ReadAll(io.LimitReader(zr, int64(sizeField)+1))
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		if len(inflated) != int(sizeField) {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrSizeMismatch, sizeField, len(inflated))
		}
		payload = inflated
	}

	files, err := parsePayload(payload, fileCount)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		TitleID:   titleID,
		Timestamp: timestamp,
		Files:     files,
	}, nil
}

// minTableEntry is the smallest possible file-table entry: a 2-byte path
// length (path may be empty), 4-byte size and 32-byte hash.
const minTableEntry = 2 + 4 + sha256.Size

// parsePayload parses the file table and file data sections. Each length
// field is checked against the remaining buffer before it is consumed.
func parsePayload(data []byte, fileCount uint32) ([]File, error) {
	offset := 0

	// The count field is untrusted; cap the allocation at what the buffer
	// could possibly hold and let the per-entry checks reject the rest.
	files := make([]File, 0, min(int(fileCount), len(data)/minTableEntry))

	for i := uint32(0); i < fileCount; i++ {
		if offset+2 > len(data) {
			return nil, ErrTruncatedTable
		}
		pathLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		if offset+pathLen > len(data) {
			return nil, ErrTruncatedPath
		}
		path := string(data[offset : offset+pathLen])
		offset += pathLen

		if offset+4 > len(data) {
			return nil, ErrTruncatedSize
		}
		size := binary.LittleEndian.Uint32(data[offset:])
		offset += 4

		if offset+sha256.Size > len(data) {
			return nil, ErrTruncatedHash
		}
		var sum [sha256.Size]byte
		copy(sum[:], data[offset:offset+sha256.Size])
		offset += sha256.Size

		files = append(files, File{Path: path, Size: size, SHA256: sum})
	}

	for i := range files {
		f := &files[i]
		end := offset + int(f.Size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: %s", ErrTruncatedData, f.Path)
		}
		f.Data = data[offset:end]
		offset = end

		actual := sha256.Sum256(f.Data)
		if actual != f.SHA256 {
			return nil, &HashMismatchError{
				Path:     f.Path,
				Expected: hex.EncodeToString(f.SHA256[:]),
				Actual:   hex.EncodeToString(actual[:]),
			}
		}
	}

	return files, nil
}

func buildPayload(b *Bundle) []byte {
	var buf bytes.Buffer

	for _, f := range b.Files {
		path := []byte(f.Path)
		var plen [2]byte
		binary.LittleEndian.PutUint16(plen[:], uint16(len(path)))
		buf.Write(plen[:])
		buf.Write(path)
		writeUint32(&buf, f.Size)
		buf.Write(f.SHA256[:])
	}

	for _, f := range b.Files {
		buf.Write(f.Data)
	}

	return buf.Bytes()
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
