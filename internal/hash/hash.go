// Package hash computes content hashes for duplicate detection and runs the
// two-phase hashing pipeline: a cheap partial fingerprint over every
// candidate, then a full streaming hash over fingerprint collisions only.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// ChunkSize is the read unit for both hashing tiers, 64 KiB.
const ChunkSize = 64 * 1024

// PartialFingerprint hashes up to three 64 KiB samples of the file: the
// start always, the middle when the file exceeds two chunks, the end when it
// exceeds three. Files that differ early or late collide on neither tier;
// equal fingerprints still require full-hash confirmation.
func PartialFingerprint(fs afero.Fs, path string, size int64) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("partial hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, ChunkSize)

	if err := hashChunk(h, f, buf); err != nil {
		return "", fmt.Errorf("partial hash %s: %w", path, err)
	}
	if size > 2*ChunkSize {
		if _, err := f.Seek(size/2, io.SeekStart); err != nil {
			return "", fmt.Errorf("partial hash %s: %w", path, err)
		}
		if err := hashChunk(h, f, buf); err != nil {
			return "", fmt.Errorf("partial hash %s: %w", path, err)
		}
	}
	if size > 3*ChunkSize {
		if _, err := f.Seek(-ChunkSize, io.SeekEnd); err != nil {
			return "", fmt.Errorf("partial hash %s: %w", path, err)
		}
		if err := hashChunk(h, f, buf); err != nil {
			return "", fmt.Errorf("partial hash %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FullHash streams the whole file through SHA-256.
func FullHash(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("full hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, ChunkSize)); err != nil {
		return "", fmt.Errorf("full hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashChunk reads at most one chunk from r into h. A short read at end of
// file is not an error.
func hashChunk(h io.Writer, r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	_, werr := h.Write(buf[:n])
	return werr
}
