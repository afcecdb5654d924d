package models

// All lists every persisted model, in dependency order. Tests and the SQLite dev
// mode auto-migrate from it; Postgres is migrated by goose.
func All() []any {
	return []any{
		&User{},
		&Shop{},
		&ProductCategory{},
		&Product{},
		&ProductVariation{},
		&Discount{},
		&ProductVariationDiscount{},
		&CategoryDiscount{},
		&Cart{},
		&CartItem{},
		&CartDiscount{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&WishlistItem{},
		&CarouselItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
