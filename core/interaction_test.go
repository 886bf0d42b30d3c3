package core

import "testing"

func TestInteractionTypeWeight(t *testing.T) {
	tests := []struct {
		name string
		typ  InteractionType
		want float64
	}{
		{"view", InteractionView, 1.0},
		{"wishlist", InteractionWishlist, 2.0},
		{"add_to_cart", InteractionAddToCart, 3.0},
		{"rating", InteractionRating, 5.0},
		{"purchase", InteractionPurchase, 10.0},
		{"unknown type falls back to view", InteractionType("share"), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Weight(); got != tt.want {
				t.Errorf("Weight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInteractionType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want InteractionType
	}{
		{"lowercase", "purchase", InteractionPurchase},
		{"uppercase", "PURCHASE", InteractionPurchase},
		{"mixed case", "Add_To_Cart", InteractionAddToCart},
		{"unknown falls back to view", "share", InteractionView},
		{"empty falls back to view", "", InteractionView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseInteractionType(tt.in); got != tt.want {
				t.Errorf("ParseInteractionType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInteractionEventValidate(t *testing.T) {
	rating := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		event   InteractionEvent
		wantErr bool
	}{
		{
			name:  "valid view",
			event: InteractionEvent{UserID: "u1", ProductID: "p1", Type: InteractionView},
		},
		{
			name:  "valid rating",
			event: InteractionEvent{UserID: "u1", ProductID: "p1", Type: InteractionRating, Value: rating(4.5)},
		},
		{
			name:    "missing user id",
			event:   InteractionEvent{ProductID: "p1", Type: InteractionView},
			wantErr: true,
		},
		{
			name:    "missing product id",
			event:   InteractionEvent{UserID: "u1", Type: InteractionView},
			wantErr: true,
		},
		{
			name:    "rating without value",
			event:   InteractionEvent{UserID: "u1", ProductID: "p1", Type: InteractionRating},
			wantErr: true,
		},
		{
			name:    "rating above range",
			event:   InteractionEvent{UserID: "u1", ProductID: "p1", Type: InteractionRating, Value: rating(6.0)},
			wantErr: true,
		},
		{
			name:    "rating below range",
			event:   InteractionEvent{UserID: "u1", ProductID: "p1", Type: InteractionRating, Value: rating(0.5)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("Validate() returned non-validation error: %v", err)
			}
		})
	}
}

func TestInteractionEventWeightedScore(t *testing.T) {
	val := 4.0
	tests := []struct {
		name  string
		event InteractionEvent
		want  float64
	}{
		{
			name:  "rating value overrides base weight",
			event: InteractionEvent{Type: InteractionRating, Value: &val},
			want:  4.0,
		},
		{
			name:  "purchase uses base weight",
			event: InteractionEvent{Type: InteractionPurchase},
			want:  10.0,
		},
		{
			name:  "rating without value uses base weight",
			event: InteractionEvent{Type: InteractionRating},
			want:  5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.WeightedScore(); got != tt.want {
				t.Errorf("WeightedScore() = %v, want %v", got, tt.want)
			}
		})
	}
}
