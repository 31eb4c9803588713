package models

// GetAllModels returns all model types for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Service{},
		&Appointment{},
		&Invoice{},
	}
}
