package portfolioclient

import "time"

// User is the profile returned by the auth endpoints.
type User struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	ProfileImage string    `json:"profile_image"`
	Banner       string    `json:"banner"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	Street       string    `json:"street"`
	HouseNumber  string    `json:"house_number"`
	PhoneNumber  string    `json:"phone_number"`
	FullAddress  string    `json:"full_address"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Record carries the server-managed fields of owned resources.
type Record struct {
	ID        uint      `json:"id,omitempty"`
	User      uint      `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type Experience struct {
	Record
	Company     string  `json:"company"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

type Education struct {
	Record
	School      string  `json:"school"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

type Skill struct {
	Record
	Label string `json:"label"`
}

type SocialType struct {
	ID    uint   `json:"id,omitempty"`
	Label string `json:"label"`
	Logo  string `json:"logo"`
}

type Social struct {
	Record
	SocialType       uint        `json:"social_type"`
	Link             string      `json:"link"`
	SocialTypeDetail *SocialType `json:"social_type_detail,omitempty"`
}

type Project struct {
	Record
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"image_url,omitempty"`
	Technologies []string `json:"technologies"`
	DemoURL      string   `json:"demo_url,omitempty"`
	GithubURL    string   `json:"github_url,omitempty"`
}

type Service struct {
	Record
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	IconURL       string   `json:"icon_url,omitempty"`
	Price         *float64 `json:"price"`
	DurationHours *uint    `json:"duration_hours"`
	IsActive      bool     `json:"is_active"`
	Tags          []string `json:"tags"`
}

type Contact struct {
	Record
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
}

type Settings struct {
	Record
	Color string `json:"color"`
}

type Category struct {
	ID   uint   `json:"id,omitempty"`
	Name string `json:"name"`
}

type Article struct {
	Record
	Category       uint       `json:"category"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	CoverageImage  string     `json:"coverage_image,omitempty"`
	IsPublished    bool       `json:"is_published"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CategoryDetail *Category  `json:"category_detail,omitempty"`
}

// Portfolio is the public aggregate of one user.
type Portfolio struct {
	User        User         `json:"user"`
	Settings    Settings     `json:"settings"`
	Experiences []Experience `json:"experiences"`
	Educations  []Education  `json:"educations"`
	Skills      []Skill      `json:"skills"`
	Socials     []Social     `json:"socials"`
	Projects    []Project    `json:"projects"`
	Services    []Service    `json:"services"`
	Articles    []Article    `json:"articles"`
}

// Registration is the payload of Register.
type Registration struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username           *string `json:"username,omitempty"`
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	Country            *string `json:"country,omitempty"`
	City               *string `json:"city,omitempty"`
	PostalCode         *string `json:"postal_code,omitempty"`
	Street             *string `json:"street,omitempty"`
	HouseNumber        *string `json:"house_number,omitempty"`
	PhoneNumber        *string `json:"phone_number,omitempty"`
	DeleteProfileImage bool    `json:"delete_profile_image,omitempty"`
	DeleteBanner       bool    `json:"delete_banner,omitempty"`
}
