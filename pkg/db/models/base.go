package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the primary key is unset. Postgres has
// gen_random_uuid() defaults, SQLite does not, so ids are generated client side.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
