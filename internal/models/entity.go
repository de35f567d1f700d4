package models

// DefaultRating is the rating a freshly created entity starts with.
const DefaultRating = 1500.0

// Entity is a rankable item submitted for pairwise comparison.
// Matches the server's EntityOut schema.
type Entity struct {
	ID          int      `json:"id" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Rating      float64  `json:"rating" yaml:"rating,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	ImageURLs   []string `json:"image_urls" yaml:"image_urls"`
}

// EntityInput is the payload for creating an entity.
type EntityInput struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	ImageURLs   []string `json:"image_urls" yaml:"image_urls"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// EntityUpdate is the payload for updating an entity. Nil fields are left untouched.
type EntityUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// NextComparison is a suggested pair of entities to compare.
type NextComparison struct {
	Entity1 Entity `json:"entity1"`
	Entity2 Entity `json:"entity2"`
}
