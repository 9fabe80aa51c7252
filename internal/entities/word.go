package entities

// Category and Word mirror the seeded word dataset so the stats
// queries can join on category keys.
type Category struct {
	Key  string `gorm:"primary_key"`
	Name string
}

type Word struct {
	ID          uint `gorm:"primary_key;autoIncrement"`
	CategoryKey string `gorm:"index"`
	Text        string
}
