package model

// AutoMigrate対象
func All() []interface{} {
	return []interface{}{
		&User{},
		&Account{},
		&Category{},
		&Design{},
		&DesignImage{},
		&Cart{},
		&CartDetail{},
		&Order{},
		&OrderDetail{},
		&Wallet{},
		&WalletTransaction{},
		&Feedback{},
		&Message{},
		&AuditLog{},
	}
}
