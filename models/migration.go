package models

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&SequenceCounter{},
		&Client{},
		&LineOfBusiness{}, &SubLineOfBusiness{},
		&Rfq{}, &RfqInsurerQuote{},
		&Policy{},
		&Endorsement{},
		&LifecycleEvent{},
	)
}
