package feature

import (
	"context"
	"sort"
	"testing"

	"github.com/rushteam/shoprec/store"
)

func TestProductAttributesTokens(t *testing.T) {
	tests := []struct {
		name  string
		attrs ProductAttributes
		want  []string
	}{
		{
			name: "all dimensions tokenized",
			attrs: ProductAttributes{
				Category: "Shirt",
				Brand:    "ACME",
				Color:    "blue",
				Tags:     []string{"Summer", "casual"},
			},
			want: []string{
				"brand:acme", "category:shirt", "color:blue",
				"tag:casual", "tag:summer",
			},
		},
		{
			name:  "empty fields skipped",
			attrs: ProductAttributes{Category: "shoes"},
			want:  []string{"category:shoes"},
		},
		{
			name: "extra dimensions included",
			attrs: ProductAttributes{
				Extra: map[string]string{"material": "Cotton", "season": "winter"},
			},
			want: []string{"material:cotton", "season:winter"},
		},
		{
			name:  "no attributes no tokens",
			attrs: ProductAttributes{},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.attrs.Tokens()
			sort.Strings(got)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokens() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStoreAttributeSource(t *testing.T) {
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	src := NewStoreAttributeSource(kv)
	ctx := context.Background()

	attrs := &ProductAttributes{Category: "shirt", Brand: "acme"}
	if err := src.PutAttributes(ctx, "p1", attrs); err != nil {
		t.Fatalf("PutAttributes() error = %v", err)
	}
	if err := src.PutAttributes(ctx, "p2", &ProductAttributes{Category: "shoes"}); err != nil {
		t.Fatalf("PutAttributes() error = %v", err)
	}

	tokens, err := src.ProductTokens(ctx, "p1")
	if err != nil {
		t.Fatalf("ProductTokens() error = %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("got %d tokens, want 2: %v", len(tokens), tokens)
	}

	ids, err := src.AllProducts(ctx)
	if err != nil {
		t.Fatalf("AllProducts() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("catalog = %v, want [p1 p2]", ids)
	}
}

func TestStoreAttributeSourceEmptyCatalog(t *testing.T) {
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	src := NewStoreAttributeSource(kv)

	ids, err := src.AllProducts(context.Background())
	if err != nil {
		t.Fatalf("AllProducts() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty catalog, got %v", ids)
	}
}

func TestStoreAttributeSourceRejectsEmptyID(t *testing.T) {
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	src := NewStoreAttributeSource(kv)

	if err := src.PutAttributes(context.Background(), "", &ProductAttributes{}); err == nil {
		t.Error("expected error for empty product id")
	}
}
