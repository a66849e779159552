package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
)

var ErrCorpusNotFound = errors.New("corpus path not found")

// Reader walks a corpus directory and splits each matching file into
// Documents. Files hold any number of <DOC> records with a <DOCNO> id and a
// <TEXT> body; markup nested inside <TEXT> contributes its text.
type Reader struct {
	includes []string
	excludes []string
	logger   *slog.Logger
}

func NewReader(includes, excludes []string) *Reader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Reader{
		includes: includes,
		excludes: excludes,
		logger:   slog.Default().With("component", "corpus-reader"),
	}
}

// Files lists the corpus files under root in lexical order.
func (r *Reader) Files(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, root)
		}
		return nil, fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && r.matchAny(r.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if r.matchAny(r.includes, rel) && !r.matchAny(r.excludes, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Reader) matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Read walks root and calls emit for every document in every file. A file
// that cannot be opened is logged and skipped. emit returning an error stops
// the walk.
func (r *Reader) Read(ctx context.Context, root string, emit func(*Document) error) (int, error) {
	files, err := r.Files(root)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		docs, err := r.ReadFile(path)
		if err != nil {
			r.logger.Warn("skipping corpus file", "path", path, "error", err)
			continue
		}
		for _, doc := range docs {
			if err := emit(doc); err != nil {
				return total, err
			}
			total++
		}
	}
	r.logger.Info("corpus read", "files", len(files), "documents", total)
	return total, nil
}

func (r *Reader) ReadFile(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	docs, err := ParseDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return docs, nil
}

// ParseDocuments extracts every <DOC> record from rd. Records without a
// <DOCNO> are dropped.
func ParseDocuments(rd io.Reader) ([]*Document, error) {
	var (
		docs                          []*Document
		docDepth, noDepth, textDepth int
		docNo, text                   strings.Builder
	)
	z := html.NewTokenizer(rd)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return docs, nil
			}
			return docs, z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "doc":
				docDepth++
				docNo.Reset()
				text.Reset()
			case "docno":
				noDepth++
			case "text":
				textDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "doc":
				if docDepth == 0 {
					continue
				}
				docDepth--
				if id := strings.TrimSpace(docNo.String()); id != "" {
					docs = append(docs, NewDocument(id, strings.TrimSpace(text.String())))
				}
				noDepth, textDepth = 0, 0
			case "docno":
				if noDepth > 0 {
					noDepth--
				}
			case "text":
				if textDepth > 0 {
					textDepth--
				}
			}
		case html.TextToken:
			if docDepth == 0 {
				continue
			}
			switch {
			case noDepth > 0:
				docNo.Write(z.Text())
			case textDepth > 0:
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		}
	}
}
