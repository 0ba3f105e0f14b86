// Package portfolio serves the resources that make up a user's public portfolio.
package portfolio

import "time"

// Base carries the identity, owner and timestamps shared by owned resources.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id" form:"-"`
	UserID    uint      `gorm:"index;not null" json:"user" form:"user"`
	CreatedAt time.Time `gorm:"index" json:"created_at" form:"-"`
	UpdatedAt time.Time `json:"updated_at" form:"-"`
}

// Experience is a professional position.
type Experience struct {
	Base
	Company     string  `gorm:"size:255;not null" json:"company" form:"company" binding:"required,max=255"`
	Title       string  `gorm:"size:255" json:"title" form:"title" binding:"max=255"`
	Description string  `gorm:"type:text;not null" json:"description" form:"description" binding:"required"`
	StartDate   string  `gorm:"size:10;not null" json:"start_date" form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     *string `gorm:"size:10" json:"end_date" form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// Education is a school or course.
type Education struct {
	Base
	School      string  `gorm:"size:255;not null" json:"school" form:"school" binding:"required,max=255"`
	Description string  `gorm:"type:text;not null" json:"description" form:"description" binding:"required"`
	StartDate   string  `gorm:"size:10;not null" json:"start_date" form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     *string `gorm:"size:10" json:"end_date" form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// Skill is a labelled competence.
type Skill struct {
	Base
	Label string `gorm:"size:100;not null" json:"label" form:"label" binding:"required,max=100"`
}

// SocialType is a seeded social network definition.
type SocialType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Label     string    `gorm:"size:100;not null" json:"label" binding:"required,max=100"`
	Logo      string    `gorm:"size:500;not null" json:"logo" binding:"required,url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Social links a user to a profile on a social network.
type Social struct {
	Base
	SocialTypeID uint        `gorm:"index;not null" json:"social_type" form:"social_type" binding:"required"`
	Link         string      `gorm:"size:500;not null" json:"link" form:"link" binding:"required,url"`
	SocialType   *SocialType `gorm:"foreignKey:SocialTypeID" json:"social_type_detail,omitempty" form:"-" binding:"-"`
}

// Project is a showcased piece of work.
type Project struct {
	Base
	Title        string   `gorm:"size:200;not null" json:"title" form:"title" binding:"required,max=200"`
	Description  string   `gorm:"type:text;not null" json:"description" form:"description" binding:"required"`
	ImageURL     string   `gorm:"size:500" json:"image_url" form:"-" binding:"-"`
	DeleteImage  bool     `gorm:"-" json:"delete_image,omitempty" form:"delete_image"`
	Technologies []string `gorm:"serializer:json;type:text" json:"technologies" form:"technologies"`
	DemoURL      string   `gorm:"size:500" json:"demo_url" form:"demo_url" binding:"omitempty,url"`
	GithubURL    string   `gorm:"size:500" json:"github_url" form:"github_url" binding:"omitempty,url"`
}

// Service is an offering with optional price and duration.
type Service struct {
	Base
	Title         string   `gorm:"size:255;not null" json:"title" form:"title" binding:"required,max=255"`
	Description   string   `gorm:"type:text;not null" json:"description" form:"description" binding:"required"`
	IconURL       string   `gorm:"size:500" json:"icon_url" form:"-" binding:"-"`
	DeleteIcon    bool     `gorm:"-" json:"delete_icon,omitempty" form:"delete_icon"`
	Price         *float64 `json:"price" form:"price" binding:"omitempty,gte=0"`
	DurationHours *uint    `json:"duration_hours" form:"duration_hours"`
	IsActive      bool     `gorm:"not null" json:"is_active" form:"is_active"`
	Tags          []string `gorm:"serializer:json;type:text" json:"tags" form:"tags"`
}

// Contact is a message left by a visitor for a portfolio owner.
type Contact struct {
	Base
	Name    string `gorm:"size:100;not null" json:"name" form:"name" binding:"required,max=100"`
	Email   string `gorm:"size:254;not null" json:"email" form:"email" binding:"required,email"`
	Message string `gorm:"type:text;not null" json:"message" form:"message" binding:"required"`
	Read    bool   `gorm:"not null" json:"read" form:"read"`
}

// Settings holds per-user presentation preferences; a user has at most one row.
type Settings struct {
	ID        uint      `gorm:"primaryKey" json:"id" form:"-"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user" form:"-"`
	Color     string    `gorm:"size:32;not null" json:"color" form:"color" binding:"required,iscolor"`
	CreatedAt time.Time `json:"created_at" form:"-"`
	UpdatedAt time.Time `json:"updated_at" form:"-"`
}

// Category groups articles.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required,max=100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Article is a blog post; only published articles are public.
type Article struct {
	Base
	CategoryID    uint       `gorm:"index;not null" json:"category" form:"category" binding:"required"`
	Title         string     `gorm:"size:200;not null" json:"title" form:"title" binding:"required,max=200"`
	Content       string     `gorm:"type:text;not null" json:"content" form:"content" binding:"required"`
	CoverageImage string     `gorm:"size:500" json:"coverage_image" form:"coverage_image" binding:"omitempty,url"`
	IsPublished   bool       `gorm:"not null" json:"is_published" form:"is_published"`
	PublishedAt   *time.Time `json:"published_at" form:"-"`
	Category      *Category  `gorm:"foreignKey:CategoryID" json:"category_detail,omitempty" form:"-" binding:"-"`
}

// DefaultColor is the theme colour used until a user saves settings.
const DefaultColor = "#2563eb"

// Models lists the tables owned by this package for AutoMigrate.
func Models() []any {
	return []any{
		&Experience{},
		&Education{},
		&Skill{},
		&SocialType{},
		&Social{},
		&Project{},
		&Service{},
		&Contact{},
		&Settings{},
		&Category{},
		&Article{},
	}
}
