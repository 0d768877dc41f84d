package scraper

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// collectCodes reads every result item's code attribute, deduplicated to the
// first occurrence in render order. The dedupe cache is bounded at
// cfg.DedupeMaxSize entries.
func (s *Scraper) collectCodes() ([]string, error) {
	sel := s.cfg.Selectors
	values, err := s.surface.AttributeAll(sel.ResultItem, sel.CodeAttr)
	if err != nil {
		return nil, fmt.Errorf("read result codes: %w", err)
	}

	seen, err := lru.New[string, struct{}](s.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("build dedupe cache: %w", err)
	}
	codes := make([]string, 0, len(values))
	for _, v := range values {
		code := strings.TrimSpace(v)
		if code == "" {
			continue
		}
		if _, dup := seen.Get(code); dup {
			continue
		}
		seen.Add(code, struct{}{})
		codes = append(codes, code)
	}
	return codes, nil
}
