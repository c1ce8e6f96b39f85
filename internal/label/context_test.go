package label

import "testing"

func TestDataContextResolve(t *testing.T) {
	ctx := DataContext{
		Item:   &Item{ItemID: "TEST001", Name: "Ring", Price: 129.5},
		Custom: map[string]string{"note": "gift"},
	}

	tests := []struct {
		name     string
		ctx      DataContext
		binding  string
		fallback string
		expect   string
	}{
		{name: "item field", ctx: ctx, binding: "item.itemId", fallback: "x", expect: "TEST001"},
		{name: "snake case field", ctx: ctx, binding: "item.item_id", fallback: "x", expect: "TEST001"},
		{name: "price formatting", ctx: ctx, binding: "item.price", fallback: "x", expect: "129.50"},
		{name: "custom field", ctx: ctx, binding: "custom.note", fallback: "x", expect: "gift"},
		{name: "unknown custom field", ctx: ctx, binding: "custom.missing", fallback: "x", expect: "x"},
		{name: "unknown item field", ctx: ctx, binding: "item.colour", fallback: "x", expect: "x"},
		{name: "empty item field", ctx: ctx, binding: "item.sku", fallback: "x", expect: "x"},
		{name: "absent entity", ctx: ctx, binding: "store.name", fallback: "x", expect: "x"},
		{name: "unknown entity", ctx: ctx, binding: "order.id", fallback: "x", expect: "x"},
		{name: "no entity prefix", ctx: ctx, binding: "itemId", fallback: "static", expect: "static"},
		{name: "empty binding", ctx: ctx, binding: "", fallback: "static", expect: "static"},
		{name: "empty context", ctx: DataContext{}, binding: "item.itemId", fallback: "", expect: ""},
		{name: "only first dot splits", ctx: DataContext{Custom: map[string]string{"a.b": "nested"}}, binding: "custom.a.b", fallback: "", expect: "nested"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := tc.ctx.Resolve(tc.binding, tc.fallback)
			if got != tc.expect {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.binding, got, tc.expect)
			}
		})
	}
}

func TestStoreField(t *testing.T) {
	s := &Store{Name: "Gold & Co", TaxID: "IT123"}
	if v, ok := s.Field("tax_id"); !ok || v != "IT123" {
		t.Fatalf("Field(tax_id) = %q, %v", v, ok)
	}
	if _, ok := s.Field("owner"); ok {
		t.Fatal("Field(owner) should not resolve")
	}
}
