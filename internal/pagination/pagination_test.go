package pagination

import "testing"

func TestPageRequestDefaults(t *testing.T) {
	p := PageRequest{}
	p.Defaults()
	if p.Page != 1 || p.PageSize != 20 {
		t.Errorf("expected page 1 size 20, got %d/%d", p.Page, p.PageSize)
	}

	p = PageRequest{Page: 3, PageSize: 500}
	p.Defaults()
	if p.PageSize != 100 {
		t.Errorf("expected page size clamped to 100, got %d", p.PageSize)
	}
	if p.Offset() != 200 {
		t.Errorf("expected offset 200, got %d", p.Offset())
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 2, 10, 21)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if resp.Data == nil || len(resp.Data) != 0 {
		t.Error("expected empty non-nil data")
	}
}
