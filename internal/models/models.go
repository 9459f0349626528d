package models

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&Employee{},
		&Customer{},
		&Invoice{},
	}
}
