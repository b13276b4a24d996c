package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/RobinCoderZhao/attitudebot/pkg/docconv"
)

// Article is one dated unit of text extracted from a source document.
type Article struct {
	Date    time.Time `json:"date"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
}

// Document is a raw input file.
type Document struct {
	Name string
	Data []byte
}

// Stats counts what happened while building a corpus.
type Stats struct {
	Files    int `json:"files"`
	Spans    int `json:"spans"`
	Articles int `json:"articles"`
	Undated  int `json:"undated"`
}

// Build converts, splits and dates every document, in order. Articles
// without a resolvable date are left out with a logged notice.
func Build(docs []Document) ([]Article, Stats) {
	var (
		articles []Article
		stats    Stats
	)
	for _, doc := range docs {
		stats.Files++
		text := docconv.Convert(doc.Name, doc.Data)
		for _, span := range SplitArticles(text) {
			stats.Spans++
			date, ok := ResolveDate(span)
			if !ok {
				stats.Undated++
				slog.Info("no date found in article, skipping", "file", doc.Name)
				continue
			}
			articles = append(articles, Article{Date: date, Content: span, Source: doc.Name})
		}
	}
	stats.Articles = len(articles)
	return articles, stats
}

// ReadDir loads every file in dir matching one of patterns, sorted by
// name so runs are reproducible.
func ReadDir(dir string, patterns []string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input directory: %s is not a directory", dir)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, Document{Name: filepath.Base(path), Data: data})
	}
	return docs, nil
}

// BuildDir reads dir and builds its corpus.
func BuildDir(dir string, patterns []string) ([]Article, Stats, error) {
	docs, err := ReadDir(dir, patterns)
	if err != nil {
		return nil, Stats{}, err
	}
	if len(docs) == 0 {
		slog.Warn("no input files found", "dir", dir, "patterns", patterns)
	}
	articles, stats := Build(docs)
	return articles, stats, nil
}
