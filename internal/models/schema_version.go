package models

// SchemaVersion is the single-row marker that gates forward migrations.
type SchemaVersion struct {
	Version int `gorm:"primaryKey"`
}
