package service

import (
	"testing"

	"github.com/ikkim/inventory-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func names(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestFilterProducts(t *testing.T) {
	products := []model.Product{
		{ID: 1, Name: "Red Chair", Tags: []string{"a"}},
		{ID: 2, Name: "Desk", Tags: []string{"b"}},
		{ID: 3, Name: "Armchair", Tags: []string{"a", "b"}},
	}

	tests := []struct {
		name   string
		tags   []string
		search string
		want   []string
	}{
		{name: "no filters", want: []string{"Red Chair", "Desk", "Armchair"}},
		{name: "any of two tags", tags: []string{"a", "b"}, want: []string{"Red Chair", "Desk", "Armchair"}},
		{name: "single tag", tags: []string{"a"}, want: []string{"Red Chair", "Armchair"}},
		{name: "unknown tag", tags: []string{"z"}, want: []string{}},
		{name: "search lower", search: "chair", want: []string{"Red Chair", "Armchair"}},
		{name: "search upper", search: "RED", want: []string{"Red Chair"}},
		{name: "tag and search", tags: []string{"b"}, search: "chair", want: []string{"Armchair"}},
		{name: "blank search", search: "   ", want: []string{"Red Chair", "Desk", "Armchair"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProducts(products, tt.tags, tt.search)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestFilterProducts_DoesNotMutateInput(t *testing.T) {
	products := []model.Product{{ID: 1, Name: "A", Tags: []string{"x"}}, {ID: 2, Name: "B"}}
	FilterProducts(products, []string{"x"}, "")
	assert.Equal(t, "A", products[0].Name)
	assert.Equal(t, "B", products[1].Name)
}
