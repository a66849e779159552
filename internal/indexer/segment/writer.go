// Package segment persists the master dictionary as a single .spdx file:
// a 64-byte header, snappy-compressed posting blocks (one per term, in the
// "docId#freq#parser" encoding), a JSON term dictionary and a checksummed
// footer. The stemmed and unstemmed builds live in separate directories.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/golang/snappy"
)

const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32

	// FileName is the dictionary file inside a variant directory.
	FileName = "dictionary.spdx"
)

// VariantDir returns the directory holding the stemmed or unstemmed build
// under root.
func VariantDir(root string, stemmed bool) string {
	if stemmed {
		return filepath.Join(root, "stemmed")
	}
	return filepath.Join(root, "unstemmed")
}

// Header is the fixed-size block at the start of every file.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

// DictEntry locates one term's compressed posting block.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
	TotalFreq  int    `json:"f"`
	Entity     bool   `json:"e,omitempty"`
}

type Writer struct {
	dir          string
	entityParser string
}

// NewWriter writes into dir. Terms with at least one posting produced by
// entityParser are flagged as entities in the dictionary.
func NewWriter(dir, entityParser string) *Writer {
	return &Writer{dir: dir, entityParser: entityParser}
}

// Write replaces the dictionary file with entries, which must be sorted by
// term. The file is written to a temporary name and renamed into place.
func (w *Writer) Write(entries []index.TermEntry) (string, error) {
	finalPath := filepath.Join(w.dir, FileName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating dictionary directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp dictionary file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(len(entries)))
	binary.LittleEndian.PutUint64(headerBytes[48:56], uint64(time.Now().Unix()))
	if _, err := f.Write(headerBytes); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := int64(0)
	dict := make([]DictEntry, 0, len(entries))
	docIDs := make(map[string]struct{})
	for _, entry := range entries {
		block := snappy.Encode(nil, []byte(entry.Postings.String()))
		if _, err := f.Write(block); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		de := DictEntry{
			Term:       entry.Term,
			PostOffset: offset,
			PostLen:    len(block),
			DocFreq:    len(entry.Postings),
		}
		for _, p := range entry.Postings {
			de.TotalFreq += p.Frequency
			if p.Parser == w.entityParser {
				de.Entity = true
			}
			docIDs[p.DocID] = struct{}{}
		}
		dict = append(dict, de)
		offset += int64(len(block))
	}

	dictStart := postingsStart + offset
	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(docIDs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(offset))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(len(docIDs)))
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(postingsStart))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(offset))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing dictionary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing dictionary file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming dictionary file: %w", err)
	}
	return finalPath, nil
}
