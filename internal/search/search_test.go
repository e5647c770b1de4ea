package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
)

func TestDocumentRoundTrip(t *testing.T) {
	catID := "cat-1"
	compare := int64(600)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := &domain.Product{
		ID:             "p-1",
		Name:           "Keto Cookie",
		Slug:           "keto-cookie",
		Price:          350,
		CompareAtPrice: &compare,
		CategoryID:     &catID,
		Category:       &domain.Category{ID: catID, Name: "Cookies", Slug: "cookies"},
		IsKetoFriendly: true,
		IsActive:       true,
		Allergens:      []string{"eggs"},
		Images: []domain.ProductImage{
			{URL: "/media/side.jpg"},
			{URL: "/media/front.jpg", IsPrimary: true},
		},
		CreatedAt: created,
	}

	doc := NewDocument(p)
	assert.Equal(t, "/media/front.jpg", doc.ImageURL)
	assert.Equal(t, "Cookies", doc.CategoryName)

	back := doc.Product()
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, p.Price, back.Price)
	assert.Equal(t, &compare, back.CompareAtPrice)
	assert.True(t, back.IsKetoFriendly)
	assert.Equal(t, created, back.CreatedAt)
	require.NotNil(t, back.Category)
	assert.Equal(t, "cookies", back.Category.Slug)
	require.Len(t, back.Images, 1)
	assert.True(t, back.Images[0].IsPrimary)
}

func TestDocument_NoCategoryNoImage(t *testing.T) {
	doc := NewDocument(&domain.Product{ID: "p-2"})
	back := doc.Product()
	assert.Nil(t, back.CategoryID)
	assert.Nil(t, back.Category)
	assert.Empty(t, back.Images)
}

func TestQuery_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Query
		page    int
		perPage int
	}{
		{"defaults", Query{}, 1, 20},
		{"clamps per page", Query{Page: 3, PerPage: 1000}, 3, 100},
		{"keeps valid", Query{Page: 2, PerPage: 12}, 2, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			assert.Equal(t, tt.page, q.Page)
			assert.Equal(t, tt.perPage, q.PerPage)
		})
	}
}
