package pagination

import "testing"

func TestNormalize(t *testing.T) {
	got := Params{Page: 0, PageSize: 0}.Normalize()
	if got.Page != 1 || got.PageSize != DefaultPageSize {
		t.Fatalf("unexpected defaults %+v", got)
	}
	got = Params{Page: 3, PageSize: 1000}.Normalize()
	if got.PageSize != MaxPageSize {
		t.Fatalf("expected page size capped at %d, got %d", MaxPageSize, got.PageSize)
	}
	if off := (Params{Page: 3, PageSize: 10}).Offset(); off != 20 {
		t.Fatalf("expected offset 20, got %d", off)
	}
}

func TestNewMeta(t *testing.T) {
	cases := []struct {
		name       string
		params     Params
		total      int64
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{name: "empty", params: Params{Page: 1, PageSize: 10}, total: 0, totalPages: 0},
		{name: "single page", params: Params{Page: 1, PageSize: 10}, total: 10, totalPages: 1},
		{name: "first of many", params: Params{Page: 1, PageSize: 10}, total: 21, totalPages: 3, hasNext: true},
		{name: "middle", params: Params{Page: 2, PageSize: 10}, total: 21, totalPages: 3, hasNext: true, hasPrev: true},
		{name: "last", params: Params{Page: 3, PageSize: 10}, total: 21, totalPages: 3, hasPrev: true},
		{name: "past the end", params: Params{Page: 5, PageSize: 10}, total: 21, totalPages: 3, hasPrev: true},
	}
	for _, tc := range cases {
		meta := NewMeta(tc.params, tc.total)
		if meta.TotalPages != tc.totalPages || meta.HasNextPage != tc.hasNext || meta.HasPreviousPage != tc.hasPrev {
			t.Fatalf("%s: unexpected meta %+v", tc.name, meta)
		}
	}
}
