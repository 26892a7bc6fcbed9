package content

import (
	"time"

	"github.com/jrsteele09/weeb-client/users"
)

// Envelope is the {success, message, count, results} wrapper the content endpoints use.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
	Results T      `json:"results"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Article is the read representation returned by the blog endpoints.
type Article struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Author    *users.Profile `json:"author,omitempty"`
	Category  *Category      `json:"category,omitempty"`
}

// ArticleInput is the write representation for create and update.
type ArticleInput struct {
	Title      string `json:"title,omitempty" validate:"required,min=3,max=255"`
	Content    string `json:"content,omitempty" validate:"required,min=10"`
	CategoryID int64  `json:"category_id,omitempty" validate:"required"`
}

// Review is a contact-form submission. PredictedSatisfaction is filled in by the server.
type Review struct {
	ID                    int64     `json:"id,omitempty"`
	FirstName             string    `json:"first_name" validate:"required"`
	LastName              string    `json:"last_name" validate:"required"`
	Email                 string    `json:"email" validate:"required"`
	Phone                 string    `json:"phone,omitempty"`
	Message               string    `json:"message" validate:"required"`
	PredictedSatisfaction *int      `json:"predicted_satisfaction,omitempty"`
	CreatedAt             time.Time `json:"created_at,omitempty"`
}

type PredictRequest struct {
	Features string `json:"features"`
}

type PredictResponse struct {
	Prediction int `json:"prediction"`
}

type Health struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Environment string `json:"environment"`
}

// Catalog is the articles and categories fetched together.
type Catalog struct {
	Articles   []Article
	Categories []Category
}
