package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/stagehand/pkg/pagination"
	"github.com/JaimeStill/stagehand/pkg/query"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
			t.Errorf("config (-want +got):\n%s", diff)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("STAGEHAND_TEST_PAGE_SIZE", "50")
		t.Setenv("STAGEHAND_TEST_MAX_PAGE", "200")

		cfg := pagination.Config{}
		err := cfg.Finalize(&pagination.ConfigEnv{
			DefaultPageSize: "STAGEHAND_TEST_PAGE_SIZE",
			MaxPageSize:     "STAGEHAND_TEST_MAX_PAGE",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 200 {
			t.Errorf("config = %+v, want 50/200", cfg)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "default_page_size cannot exceed max_page_size") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestConfigMerge(t *testing.T) {
	base := defaultConfig()
	base.Merge(&pagination.Config{DefaultPageSize: 50})

	if base.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize = %d, want 50", base.DefaultPageSize)
	}
	if base.MaxPageSize != 100 {
		t.Errorf("MaxPageSize = %d, want 100 (unchanged)", base.MaxPageSize)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 20},
		{"negative page corrected", pagination.PageRequest{Page: -1, PageSize: 10}, 1, 10},
		{"page size clamped to max", pagination.PageRequest{Page: 1, PageSize: 500}, 1, 100},
		{"valid values preserved", pagination.PageRequest{Page: 3, PageSize: 25}, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(defaultConfig())
			if tt.req.Page != tt.wantPage || tt.req.PageSize != tt.wantPageSize {
				t.Errorf("got page %d size %d, want %d/%d", tt.req.Page, tt.req.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if got, want := tt.req.Offset(), (tt.wantPage-1)*tt.wantPageSize; got != want {
				t.Errorf("Offset() = %d, want %d", got, want)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		values := url.Values{
			"page":      {"2"},
			"page_size": {"15"},
			"search":    {"lovelace"},
			"sort":      {"applicantName,-submittedAt"},
		}

		req := pagination.PageRequestFromQuery(values, defaultConfig())

		if req.Page != 2 || req.PageSize != 15 {
			t.Errorf("page %d size %d, want 2/15", req.Page, req.PageSize)
		}
		if req.Search == nil || *req.Search != "lovelace" {
			t.Errorf("Search = %v, want lovelace", req.Search)
		}
		want := pagination.SortFields{
			{Field: "applicantName"},
			{Field: "submittedAt", Descending: true},
		}
		if diff := cmp.Diff(want, req.Sort); diff != "" {
			t.Errorf("sort (-want +got):\n%s", diff)
		}
	})

	t.Run("empty params get defaults", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{}, defaultConfig())

		if req.Page != 1 || req.PageSize != 20 {
			t.Errorf("page %d size %d, want 1/20", req.Page, req.PageSize)
		}
		if req.Search != nil {
			t.Errorf("Search = %v, want nil", req.Search)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		wantTotalPages int
	}{
		{"exact division", 100, 5},
		{"remainder", 101, 6},
		{"single page", 5, 1},
		{"empty result", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tt.total, 1, 20)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
			if result.Total != tt.total || result.Page != 1 || result.PageSize != 20 {
				t.Errorf("result = %+v", result)
			}
		})
	}

	t.Run("nil data becomes empty", func(t *testing.T) {
		result := pagination.NewPageResult[string](nil, 0, 1, 20)
		if result.Data == nil || len(result.Data) != 0 {
			t.Errorf("Data = %#v, want empty slice", result.Data)
		}
	})
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := pagination.SortFields{
		query.SortField{Field: "applicantName"},
		query.SortField{Field: "submittedAt", Descending: true},
	}

	tests := []struct {
		name  string
		input string
	}{
		{"string", `"applicantName,-submittedAt"`},
		{"array", `[{"Field":"applicantName","Descending":false},{"Field":"submittedAt","Descending":true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sf pagination.SortFields
			if err := json.Unmarshal([]byte(tt.input), &sf); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if diff := cmp.Diff(want, sf); diff != "" {
				t.Errorf("sort (-want +got):\n%s", diff)
			}
		})
	}
}
