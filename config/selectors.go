package config

import (
	"fmt"
	"strconv"

	"cardscrape/parser"
)

// Selectors is the CSS selector contract for the catalog page. The defaults
// match the markup this tool ships for; a config file can override any of
// them when the site shifts.
type Selectors struct {
	FilterGroups map[string]string      `json:"filter_groups"`
	ValueAttr    string                 `json:"value_attr"`
	KeywordInput string                 `json:"keyword_input"`
	CodeInput    string                 `json:"code_input"`
	SearchButton string                 `json:"search_button"`
	ResultItem   string                 `json:"result_item"`
	CodeAttr     string                 `json:"code_attr"`
	ResultHeader string                 `json:"result_header"`
	NoResults    string                 `json:"no_results"`
	LoadMore     string                 `json:"load_more"`
	DetailRoot   string                 `json:"detail_root"`
	DetailClose  string                 `json:"detail_close"`
	Detail       parser.DetailSelectors `json:"detail"`
}

// DefaultSelectors returns the selector contract for the current site markup.
func DefaultSelectors() Selectors {
	return Selectors{
		FilterGroups: map[string]string{
			"set":      `[data-filter-group="set"]`,
			"type":     `[data-filter-group="type"]`,
			"element":  `[data-filter-group="element"]`,
			"rarity":   `[data-filter-group="rarity"]`,
			"category": `[data-filter-group="category"]`,
			"cost":     `[data-filter-group="cost"]`,
			"flag":     `[data-filter-group="flag"]`,
		},
		ValueAttr:    "data-value",
		KeywordInput: `.filter-panel input[name="keyword"]`,
		CodeInput:    `.filter-panel input[name="code"]`,
		SearchButton: `.filter-panel button[type="submit"]`,
		ResultItem:   ".card-list .card-item",
		CodeAttr:     "data-code",
		ResultHeader: ".card-list-header .count",
		NoResults:    ".card-list .no-results",
		LoadMore:     ".card-list .load-more",
		DetailRoot:   ".card-detail",
		DetailClose:  ".card-detail .close-button",
		Detail: parser.DetailSelectors{
			Title: ".card-name",
			Text:  []string{".card-text .ability", ".card-text"},
			Rows:  ".card-attributes tr",
			Label: "th",
			Value: "td",
		},
	}
}

// FilterValue builds the selector for one clickable filter value inside a
// dimension's group. ok is false for dimensions without a click group
// (keyword and code are text inputs).
func (s Selectors) FilterValue(dimension, value string) (string, bool) {
	group, ok := s.FilterGroups[dimension]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s [%s=%s]", group, s.ValueAttr, strconv.Quote(value)), true
}

// ResultItemFor builds the selector for the result item carrying a code.
func (s Selectors) ResultItemFor(code string) string {
	return fmt.Sprintf("%s[%s=%s]", s.ResultItem, s.CodeAttr, strconv.Quote(code))
}

// Validate checks that the load-bearing selectors are present.
func (s Selectors) Validate() error {
	if len(s.FilterGroups) == 0 {
		return fmt.Errorf("filter groups cannot be empty")
	}
	if s.ValueAttr == "" {
		return fmt.Errorf("value attribute cannot be empty")
	}
	if s.SearchButton == "" {
		return fmt.Errorf("search button selector cannot be empty")
	}
	if s.ResultItem == "" {
		return fmt.Errorf("result item selector cannot be empty")
	}
	if s.CodeAttr == "" {
		return fmt.Errorf("code attribute cannot be empty")
	}
	if s.ResultHeader == "" {
		return fmt.Errorf("result header selector cannot be empty")
	}
	if s.DetailRoot == "" {
		return fmt.Errorf("detail root selector cannot be empty")
	}
	if s.Detail.Title == "" {
		return fmt.Errorf("detail title selector cannot be empty")
	}
	if len(s.Detail.Text) == 0 {
		return fmt.Errorf("detail text candidates cannot be empty")
	}
	if s.Detail.Rows == "" || s.Detail.Label == "" || s.Detail.Value == "" {
		return fmt.Errorf("detail attribute row selectors cannot be empty")
	}
	return nil
}
