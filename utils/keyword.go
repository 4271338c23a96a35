package utils

import (
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MakeKeyword turns a display name into a URL keyword.
func MakeKeyword(name string) string {
	return slug.Make(name)
}

// UniqueKeyword slugs the name and appends a numeric suffix until the keyword
// is unused in the given table. Tables using this helper all carry a
// `keyword` column.
func UniqueKeyword(db *gorm.DB, table, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "item"
	}
	keyword := base
	for i := 2; ; i++ {
		var count int64
		if err := db.Table(table).Where("keyword = ?", keyword).Count(&count).Error; err != nil {
			return "", fmt.Errorf("keyword lookup in %s: %w", table, err)
		}
		if count == 0 {
			return keyword, nil
		}
		keyword = fmt.Sprintf("%s-%d", base, i)
	}
}
