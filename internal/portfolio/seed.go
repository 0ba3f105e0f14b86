package portfolio

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

var defaultSocialTypes = []SocialType{
	{Label: "GitHub", Logo: "https://cdn.simpleicons.org/github"},
	{Label: "LinkedIn", Logo: "https://cdn.simpleicons.org/linkedin"},
	{Label: "X", Logo: "https://cdn.simpleicons.org/x"},
	{Label: "Facebook", Logo: "https://cdn.simpleicons.org/facebook"},
	{Label: "Instagram", Logo: "https://cdn.simpleicons.org/instagram"},
	{Label: "YouTube", Logo: "https://cdn.simpleicons.org/youtube"},
	{Label: "Dribbble", Logo: "https://cdn.simpleicons.org/dribbble"},
}

var defaultCategories = []Category{
	{Name: "Development"},
	{Name: "Design"},
	{Name: "Career"},
	{Name: "Tutorial"},
}

// Seed inserts the reference lists when their tables are empty.
func Seed(ctx context.Context, db *gorm.DB) error {
	if err := seedTable(ctx, db, defaultSocialTypes); err != nil {
		return fmt.Errorf("portfolio.seed.social_types: %w", err)
	}
	if err := seedTable(ctx, db, defaultCategories); err != nil {
		return fmt.Errorf("portfolio.seed.categories: %w", err)
	}
	return nil
}

func seedTable[T any](ctx context.Context, db *gorm.DB, defaults []T) error {
	var model T
	var count int64
	if err := db.WithContext(ctx).Model(&model).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	records := make([]T, len(defaults))
	copy(records, defaults)
	return db.WithContext(ctx).Create(&records).Error
}
