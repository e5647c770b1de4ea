package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"custom", "?page=3&per_page=10", Params{Page: 3, PerPage: 10, Offset: 20}},
		{"page_size alias", "?page=2&page_size=12", Params{Page: 2, PerPage: 12, Offset: 12}},
		{"capped", "?per_page=500", Params{Page: 1, PerPage: 100, Offset: 0}},
		{"invalid page", "?page=-4&per_page=abc", Params{Page: 1, PerPage: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/products"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}

func TestFromRequestWithDefault(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products/brownie/reviews", nil)
	assert.Equal(t, 10, FromRequestWithDefault(r, 10).PerPage)
}

func TestTotalPages(t *testing.T) {
	p := New(1, 20)
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(20))
	assert.Equal(t, 2, p.TotalPages(21))
}
