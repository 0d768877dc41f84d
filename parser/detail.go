package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cardscrape/models"
)

// DetailSelectors locates the fields of a card detail view within its own
// markup. Text holds the candidate ability-text containers, tried in order
// until one transcodes to something non-empty.
type DetailSelectors struct {
	Title string   `json:"title"`
	Text  []string `json:"text"`
	Rows  string   `json:"rows"`
	Label string   `json:"label"`
	Value string   `json:"value"`
}

// Single-letter rarity codes as printed on cards, expanded to their long
// form. Unknown codes pass through unchanged.
var rarityNames = map[string]string{
	"C": "Common",
	"R": "Rare",
	"H": "Hero",
	"L": "Legend",
	"S": "Starter",
	"P": "Promo",
	"B": "Boss",
}

// RarityName expands a rarity code like "H" to "Hero".
func RarityName(code string) string {
	c := strings.TrimSpace(code)
	if name, ok := rarityNames[strings.ToUpper(c)]; ok {
		return name
	}
	return c
}

var elementNames = map[string]string{
	"fire":      "Fire",
	"ice":       "Ice",
	"wind":      "Wind",
	"earth":     "Earth",
	"lightning": "Lightning",
	"water":     "Water",
	"light":     "Light",
	"dark":      "Dark",
	"darkness":  "Dark",
}

// ParseDetail builds a CardRecord from the detail view's markup. The record
// always carries the code and derived image URL; fields that cannot be read
// stay at their zero value and the first problem is reported through err so
// the caller can log it and keep the partial record.
func ParseDetail(markup, code, imageURL string, sel DetailSelectors) (*models.CardRecord, error) {
	card := &models.CardRecord{Code: code, ImageURL: imageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return card, fmt.Errorf("parse detail view for %s: %w", code, err)
	}

	card.Name = strings.TrimSpace(doc.Find(sel.Title).First().Text())
	card.Text = firstAbilityText(doc, sel.Text)

	doc.Find(sel.Rows).Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find(sel.Label).First().Text()))
		value := row.Find(sel.Value).First()
		switch label {
		case "type":
			card.Type = strings.TrimSpace(value.Text())
		case "job":
			card.Job = strings.TrimSpace(value.Text())
		case "element":
			card.Element = elementsFromIcons(value)
		case "cost":
			card.Cost = models.ParseIntOrString(value.Text())
		case "power":
			if txt := strings.TrimSpace(value.Text()); txt != "" {
				p := models.ParseIntOrString(txt)
				card.Power = &p
			}
		case "rarity":
			card.Rarity = RarityName(value.Text())
		case "category":
			card.Category = strings.TrimSpace(value.Text())
		case "set":
			card.Set = strings.TrimSpace(value.Text())
		}
	})

	if card.Name == "" {
		return card, fmt.Errorf("detail view for %s has no title", code)
	}
	return card, nil
}

// Element rows are icon-only: the element is read from each icon's
// classification class, multi-element cards joined with "/".
func elementsFromIcons(value *goquery.Selection) string {
	var names []string
	value.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, class := range strings.Fields(s.AttrOr("class", "")) {
			if name, ok := elementNames[class]; ok {
				names = append(names, name)
				break
			}
		}
	})
	if len(names) == 0 {
		return strings.TrimSpace(value.Text())
	}
	return strings.Join(names, "/")
}

func firstAbilityText(doc *goquery.Document, candidates []string) string {
	for _, selector := range candidates {
		s := doc.Find(selector).First()
		if len(s.Nodes) == 0 {
			continue
		}
		if text := Transcode(s.Nodes[0]); text != "" {
			return text
		}
	}
	return ""
}
