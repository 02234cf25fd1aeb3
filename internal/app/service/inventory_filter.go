package service

import (
	"strings"

	"github.com/ikkim/inventory-backend/internal/app/model"
)

// FilterProducts keeps products sharing any of tags, then those whose name
// contains search (case-insensitive). Empty filters return products as is.
func FilterProducts(products []model.Product, tags []string, search string) []model.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			wanted[t] = struct{}{}
		}
	}
	if len(wanted) == 0 && search == "" {
		return products
	}

	filtered := make([]model.Product, 0, len(products))
	for _, p := range products {
		if len(wanted) > 0 && !sharesTag(p.Tags, wanted) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func sharesTag(tags []string, wanted map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := wanted[t]; ok {
			return true
		}
	}
	return false
}
