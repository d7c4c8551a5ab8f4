package pagination

import "testing"

func TestDefaultsAndOffset(t *testing.T) {
	req := PageRequest{}
	req.Defaults()
	if req.Page != 1 || req.PageSize != 20 {
		t.Fatalf("expected defaults 1/20, got %d/%d", req.Page, req.PageSize)
	}

	req = PageRequest{Page: 3, PageSize: 10}
	if got := req.Offset(); got != 20 {
		t.Errorf("expected offset 20, got %d", got)
	}
}

func TestOrderClause(t *testing.T) {
	allowed := map[string]string{"start_date": "start_date", "name": "name"}
	tests := []struct {
		sort string
		want string
	}{
		{"", "created_at DESC"},
		{"name", "name ASC"},
		{"-start_date", "start_date DESC"},
		{"password", "created_at DESC"},
		{"-", "created_at DESC"},
	}
	for _, tt := range tests {
		req := PageRequest{Sort: tt.sort}
		if got := req.OrderClause(allowed, "created_at DESC"); got != tt.want {
			t.Errorf("sort %q: got %q, want %q", tt.sort, got, tt.want)
		}
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[string](nil, 2, 10, 25)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if resp.Data == nil || len(resp.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %v", resp.Data)
	}
}

func TestDefaultsClampsPageSize(t *testing.T) {
	req := PageRequest{Page: -2, PageSize: 5000}
	req.Defaults()
	if req.Page != 1 || req.PageSize != MaxPageSize {
		t.Fatalf("expected 1/%d, got %d/%d", MaxPageSize, req.Page, req.PageSize)
	}
}
