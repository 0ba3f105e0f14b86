package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/tyemirov/portfolio/internal/media"
	"gorm.io/gorm"
)

// resourceSet holds every owned resource bound to one database.
type resourceSet struct {
	experiences *Resource[Experience]
	educations  *Resource[Education]
	skills      *Resource[Skill]
	socials     *Resource[Social]
	projects    *Resource[Project]
	services    *Resource[Service]
	articles    *Resource[Article]
	contacts    *Resource[Contact]
}

func newResourceSet(db *gorm.DB) *resourceSet {
	socialTypes := NewRepository[SocialType](db, "social_types")
	categories := NewRepository[Category](db, "categories")
	return &resourceSet{
		experiences: &Resource[Experience]{
			name:       "experiences",
			repository: NewRepository[Experience](db, "experiences"),
			base:       func(record *Experience) *Base { return &record.Base },
			prepare: func(ctx context.Context, record *Experience, now time.Time) (map[string]string, error) {
				record.EndDate = blankToNil(record.EndDate)
				return checkDateRange(record.StartDate, record.EndDate), nil
			},
		},
		educations: &Resource[Education]{
			name:       "educations",
			repository: NewRepository[Education](db, "educations"),
			base:       func(record *Education) *Base { return &record.Base },
			prepare: func(ctx context.Context, record *Education, now time.Time) (map[string]string, error) {
				record.EndDate = blankToNil(record.EndDate)
				return checkDateRange(record.StartDate, record.EndDate), nil
			},
		},
		skills: &Resource[Skill]{
			name:       "skills",
			repository: NewRepository[Skill](db, "skills"),
			base:       func(record *Skill) *Base { return &record.Base },
		},
		socials: &Resource[Social]{
			name:       "socials",
			repository: NewRepository[Social](db, "socials", "SocialType"),
			base:       func(record *Social) *Base { return &record.Base },
			prepare: func(ctx context.Context, record *Social, now time.Time) (map[string]string, error) {
				record.SocialType = nil
				exists, err := socialTypes.Exists(ctx, record.SocialTypeID)
				if err != nil || exists {
					return nil, err
				}
				return map[string]string{"social_type": "unknown social type"}, nil
			},
		},
		projects: &Resource[Project]{
			name:       "projects",
			repository: NewRepository[Project](db, "projects"),
			base:       func(record *Project) *Base { return &record.Base },
			defaults: func(record *Project) {
				record.Technologies = []string{}
			},
			prepare: func(ctx context.Context, record *Project, now time.Time) (map[string]string, error) {
				record.Technologies = compactList(record.Technologies)
				return nil, nil
			},
			upload: &upload[Project]{
				field:    "image_file",
				category: media.ProjectImage,
				target:   func(record *Project) *string { return &record.ImageURL },
				clear:    func(record *Project) *bool { return &record.DeleteImage },
			},
		},
		services: &Resource[Service]{
			name:       "services",
			repository: NewRepository[Service](db, "services"),
			base:       func(record *Service) *Base { return &record.Base },
			defaults: func(record *Service) {
				record.IsActive = true
				record.Tags = []string{}
			},
			prepare: func(ctx context.Context, record *Service, now time.Time) (map[string]string, error) {
				record.Tags = compactList(record.Tags)
				return nil, nil
			},
			upload: &upload[Service]{
				field:    "icon_file",
				category: media.ServiceIcon,
				target:   func(record *Service) *string { return &record.IconURL },
				clear:    func(record *Service) *bool { return &record.DeleteIcon },
			},
			public: Where("is_active = ?", true),
		},
		articles: &Resource[Article]{
			name:       "articles",
			repository: NewRepository[Article](db, "articles", "Category"),
			base:       func(record *Article) *Base { return &record.Base },
			prepare: func(ctx context.Context, record *Article, now time.Time) (map[string]string, error) {
				record.Category = nil
				switch {
				case record.IsPublished && record.PublishedAt == nil:
					record.PublishedAt = &now
				case !record.IsPublished:
					record.PublishedAt = nil
				}
				exists, err := categories.Exists(ctx, record.CategoryID)
				if err != nil || exists {
					return nil, err
				}
				return map[string]string{"category": "unknown category"}, nil
			},
			public: Where("is_published = ?", true),
		},
		contacts: &Resource[Contact]{
			name:       "contacts",
			repository: NewRepository[Contact](db, "contacts"),
			base:       func(record *Contact) *Base { return &record.Base },
		},
	}
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}

// checkDateRange compares ISO dates, which order lexically.
func checkDateRange(startDate string, endDate *string) map[string]string {
	if endDate == nil {
		return nil
	}
	if *endDate < startDate {
		return map[string]string{"end_date": "must be on or after start_date"}
	}
	return nil
}

func compactList(values []string) []string {
	compacted := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, duplicate := seen[trimmed]; duplicate {
			continue
		}
		seen[trimmed] = struct{}{}
		compacted = append(compacted, trimmed)
	}
	return compacted
}
