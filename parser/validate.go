package parser

import (
	"fmt"
	"strings"

	"cardscrape/models"
)

// ValidateCard ensures a record satisfies the persistence invariants. Even
// partially extracted cards carry their identifier and derived image URL.
func ValidateCard(c *models.CardRecord) error {
	if c == nil {
		return fmt.Errorf("card is nil")
	}
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("card missing code")
	}
	if strings.TrimSpace(c.ImageURL) == "" {
		return fmt.Errorf("card %s missing image url", c.Code)
	}
	return nil
}
