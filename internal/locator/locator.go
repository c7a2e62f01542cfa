// Package locator decides which extracted file holds which logical content
// of a container family.
package locator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/textcodec"
	"bdsp-batch-editor/internal/textutil"
	"bdsp-batch-editor/internal/worker"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Rule names the classification step that matched a file.
type Rule int

const (
	// RuleNone means no step matched.
	RuleNone Rule = iota
	// RuleCandidate matched a known file name of the content.
	RuleCandidate
	// RuleKeyword matched a keyword in the file name.
	RuleKeyword
	// RuleSniff matched the shape of the file's data.
	RuleSniff
)

func (r Rule) String() string {
	switch r {
	case RuleCandidate:
		return "candidate"
	case RuleKeyword:
		return "keyword"
	case RuleSniff:
		return "sniff"
	default:
		return "none"
	}
}

// KeywordRule maps any of Words found in a lowercased file name to Content.
type KeywordRule struct {
	Words   []string
	Content string
}

// Rules drive classification for one family. Candidates and keyword rules
// are tried in order; sniff keys are looked up at the top level of a file.
type Rules struct {
	Candidates map[string][]string
	Keywords   []KeywordRule
	SniffKeys  map[string]string
}

// DefaultRules holds the rules for every known family.
var DefaultRules = map[string]Rules{
	catalog.Masterdatas.Name: {
		Candidates: map[string][]string{
			catalog.TrainerTable: {"TrainerTable.json", "trainertable.json", "TrainerPoke.json", "trainerpoke.json"},
		},
		SniffKeys: map[string]string{catalog.TrainerTable: "TrainerPoke"},
	},
	catalog.PersonalMasterdatas.Name: {
		Keywords: []KeywordRule{
			{Words: []string{"personal", "pokemon"}, Content: catalog.PersonalTable},
			{Words: []string{"ability"}, Content: catalog.AbilityTable},
			{Words: []string{"move"}, Content: catalog.MoveTable},
			{Words: []string{"item"}, Content: catalog.ItemTable},
			{Words: []string{"type"}, Content: catalog.TypeTable},
		},
		SniffKeys: map[string]string{catalog.PersonalTable: "Personal"},
	},
}

// Classification is the outcome for one extracted file.
type Classification struct {
	Path    string
	Content string
	Rule    Rule
	rank    int
}

// Supported reports whether the file was classified.
func (c Classification) Supported() bool {
	return c.Rule != RuleNone
}

// Result is the classification of a family's extracted files.
type Result struct {
	Family string
	Files  []Classification
	byType map[string]Classification
}

// Locate returns the file chosen for content.
func (r *Result) Locate(content string) (string, bool) {
	c, ok := r.byType[content]
	return c.Path, ok
}

// Contents lists the content types found, sorted.
func (r *Result) Contents() []string {
	out := make([]string, 0, len(r.byType))
	for k := range r.byType {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Unsupported lists files no rule matched.
func (r *Result) Unsupported() []string {
	var out []string
	for _, c := range r.Files {
		if !c.Supported() {
			out = append(out, c.Path)
		}
	}
	return out
}

// Locator classifies extracted files. Sniffed top-level keys are cached by
// file identity so repeated lookups in a session do not re-parse.
type Locator struct {
	rules   map[string]Rules
	workers int
	cache   *lru.Cache[string, []string]
}

// New creates a Locator with DefaultRules.
func New(cacheSize, workers int) (*Locator, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create sniff cache: %w", err)
	}
	return &Locator{rules: DefaultRules, workers: workers, cache: cache}, nil
}

// Classify assigns a content type to each file. Files are tried against
// candidate names, then keywords, then content sniffing; the first rule that
// matches wins. When several files match the same content, the one matched
// by the earliest rule is chosen.
func (l *Locator) Classify(ctx context.Context, family string, files []string) (*Result, error) {
	rules, ok := l.rules[family]
	if !ok {
		return nil, fmt.Errorf("classify %s: %w: unknown family", family, errs.ErrNotFound)
	}

	res := &Result{Family: family, Files: make([]Classification, len(files)), byType: make(map[string]Classification)}
	var pending []int
	for i, f := range files {
		res.Files[i] = classifyName(rules, f)
		if !res.Files[i].Supported() && len(rules.SniffKeys) > 0 {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		pool := worker.NewPool[int, Classification](l.workers, func(ctx context.Context, i int) (Classification, error) {
			return l.sniff(rules, files[i])
		})
		tasks := pool.Execute(ctx, pending)
		if err := worker.Errors(tasks); err != nil {
			return nil, err
		}
		for _, t := range tasks {
			res.Files[t.Input] = t.Result
		}
	}

	for _, c := range res.Files {
		if !c.Supported() {
			continue
		}
		best, seen := res.byType[c.Content]
		if !seen || c.Rule < best.Rule || (c.Rule == best.Rule && c.rank < best.rank) {
			res.byType[c.Content] = c
		}
	}

	log.Debug().
		Str("family", family).
		Int("files", len(files)).
		Strs("contents", res.Contents()).
		Msg("Classified extracted files")
	return res, nil
}

// Locate finds the file holding content. It reports false when no file
// matches and fails only on I/O errors.
func (l *Locator) Locate(ctx context.Context, family, content string, files []string) (string, bool, error) {
	res, err := l.Classify(ctx, family, files)
	if err != nil {
		return "", false, err
	}
	p, ok := res.Locate(content)
	return p, ok, nil
}

func classifyName(rules Rules, file string) Classification {
	base := filepath.Base(file)
	for content, names := range rules.Candidates {
		for rank, n := range names {
			if base == n {
				return Classification{Path: file, Content: content, Rule: RuleCandidate, rank: rank}
			}
		}
	}

	if !strings.HasSuffix(base, textcodec.Ext) {
		return Classification{Path: file}
	}
	lower := strings.ToLower(base)
	for rank, kw := range rules.Keywords {
		if textutil.ContainsAny(lower, kw.Words...) {
			return Classification{Path: file, Content: kw.Content, Rule: RuleKeyword, rank: rank}
		}
	}
	return Classification{Path: file}
}

func (l *Locator) sniff(rules Rules, file string) (Classification, error) {
	keys, err := l.topLevelKeys(file)
	if err != nil {
		return Classification{}, err
	}
	for content, key := range rules.SniffKeys {
		for _, k := range keys {
			if k == key {
				return Classification{Path: file, Content: content, Rule: RuleSniff}, nil
			}
		}
	}
	return Classification{Path: file}, nil
}

// topLevelKeys returns the keys of the file's top-level mapping. Files that
// are missing or do not parse have no keys.
func (l *Locator) topLevelKeys(file string) ([]string, error) {
	info, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap("sniff", file, fmt.Errorf("%w: %w", errs.ErrIO, err))
	}
	key := textutil.Hash(file + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10) + "|" + strconv.FormatInt(info.Size(), 10))
	if keys, ok := l.cache.Get(key); ok {
		return keys, nil
	}

	tree, err := textcodec.ReadFile(file)
	switch {
	case errors.Is(err, errs.ErrParse), errors.Is(err, errs.ErrExtractedFileMissing):
		log.Debug().Err(err).Str("file", file).Msg("Skipping unparseable file")
		return nil, nil
	case err != nil:
		return nil, err
	}

	var keys []string
	if m, ok := datatree.Mapping(tree); ok {
		keys = make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
	}
	l.cache.Add(key, keys)
	return keys, nil
}
