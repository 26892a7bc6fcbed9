package content

import (
	"strings"

	"github.com/jrsteele09/weeb-client/apimodel"
)

var articleMessages = apimodel.Messages{
	"title.max":   "Title cannot exceed 255 characters.",
	"title":       "Title must be at least 3 characters long.",
	"content":     "Content must be at least 10 characters long.",
	"category_id": "category_id is required.",
}

var reviewMessages = apimodel.Messages{
	"first_name": "This field may not be blank.",
	"last_name":  "This field may not be blank.",
	"email":      "This field may not be blank.",
	"message":    "This field may not be blank.",
}

// Validate checks a new article the way the API does before it is sent.
func (in *ArticleInput) Validate() error {
	trimmed := *in
	trimmed.Title = strings.TrimSpace(in.Title)
	trimmed.Content = strings.TrimSpace(in.Content)
	return apimodel.ValidateStruct(&trimmed, articleMessages)
}

func (r *Review) Validate() error {
	trimmed := *r
	trimmed.FirstName = strings.TrimSpace(r.FirstName)
	trimmed.LastName = strings.TrimSpace(r.LastName)
	trimmed.Email = strings.TrimSpace(r.Email)
	trimmed.Message = strings.TrimSpace(r.Message)
	return apimodel.ValidateStruct(&trimmed, reviewMessages)
}
