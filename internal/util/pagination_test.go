package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		page      int
		size      int
		want      []int
		wantPages int64
		hasNext   bool
	}{
		{name: "first page", page: 1, size: 2, want: []int{1, 2}, wantPages: 3, hasNext: true},
		{name: "last partial page", page: 3, size: 2, want: []int{5}, wantPages: 3},
		{name: "past the end", page: 9, size: 2, want: []int{}, wantPages: 3},
		{name: "defaults", page: 0, size: 0, want: items, wantPages: 1},
		{name: "size above max falls back", page: 1, size: 1000, want: items, wantPages: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, meta := Paginate(items, tt.page, tt.size)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.hasNext, meta.HasNext)
			assert.EqualValues(t, 5, meta.Total)
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
