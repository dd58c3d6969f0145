package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Business{},
		&ModifierGroup{},
		&Modifier{},
		&Item{},
		&PriceChangeHistory{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
