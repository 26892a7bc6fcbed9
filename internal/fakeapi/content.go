package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/content"
	"github.com/jrsteele09/weeb-client/users"
)

// AddArticle stores an article written by author and returns its ID.
func (s *Server) AddArticle(author users.Profile, title, body string, categoryID int64) int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addArticleLocked(author, content.ArticleInput{Title: title, Content: body, CategoryID: categoryID}).ID
}

// Reviews returns the submitted reviews.
func (s *Server) Reviews() []content.Review {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]content.Review(nil), s.reviews...)
}

func (s *Server) addArticleLocked(author users.Profile, in content.ArticleInput) *content.Article {
	s.nextArticleID++
	a := &content.Article{
		ID:        s.nextArticleID,
		Title:     strings.TrimSpace(in.Title),
		Content:   strings.TrimSpace(in.Content),
		CreatedAt: time.Now().UTC(),
		Author:    author.Clone(),
		Category:  s.categoryLocked(in.CategoryID),
	}
	s.articles = append(s.articles, a)
	return a
}

func (s *Server) categoryLocked(id int64) *content.Category {
	for i := range s.categories {
		if s.categories[i].ID == id {
			c := s.categories[i]
			return &c
		}
	}
	return nil
}

func (s *Server) articleLocked(r *http.Request) (int, *content.Article) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	for i, a := range s.articles {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func envelope(results any, message string) map[string]any {
	env := map[string]any{"success": true, "results": results}
	if message != "" {
		env["message"] = message
	}
	return env
}

func success(message string) map[string]any {
	return map[string]any{"success": true, "message": message}
}

func failure(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

func (s *Server) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.articles) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "results": "No articles found."})
		return
	}
	env := envelope(s.articles, "")
	env["count"] = len(s.articles)
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, a := s.articleLocked(r)
	if a == nil {
		writeDetail(w, http.StatusNotFound, "No Article matches the given query.")
		return
	}
	writeJSON(w, http.StatusOK, envelope(a, ""))
}

func (s *Server) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	author, _ := s.currentProfile(r)
	if !author.IsActive {
		writeJSON(w, http.StatusForbidden, failure("Your account must be activated by an administrator before you can create articles."))
		return
	}

	var in content.ArticleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}
	if in.CategoryID == 0 {
		writeJSON(w, http.StatusBadRequest, failure("category_id is required."))
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.categoryLocked(in.CategoryID) == nil {
		writeJSON(w, http.StatusNotFound, failure("This category does not exist."))
		return
	}
	writeJSON(w, http.StatusCreated, envelope(s.addArticleLocked(author, in), "Article created successfully."))
}

func canEdit(p users.Profile, a *content.Article) bool {
	return p.IsStaff || p.IsModerator() || (a.Author != nil && a.Author.ID == p.ID)
}

func (s *Server) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	editor, _ := s.currentProfile(r)

	var in content.ArticleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	_, a := s.articleLocked(r)
	if a == nil {
		writeDetail(w, http.StatusNotFound, "No Article matches the given query.")
		return
	}
	if !editor.IsActive || !canEdit(editor, a) {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	if in.Title != "" {
		a.Title = strings.TrimSpace(in.Title)
	}
	if in.Content != "" {
		a.Content = strings.TrimSpace(in.Content)
	}
	if c := s.categoryLocked(in.CategoryID); c != nil {
		a.Category = c
	}
	writeJSON(w, http.StatusOK, envelope(a, "Article updated successfully."))
}

func (s *Server) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	editor, _ := s.currentProfile(r)

	s.lock.Lock()
	defer s.lock.Unlock()
	i, a := s.articleLocked(r)
	if a == nil {
		writeDetail(w, http.StatusNotFound, "No Article matches the given query.")
		return
	}
	if !editor.IsActive || !canEdit(editor, a) {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	s.articles = append(s.articles[:i], s.articles[i+1:]...)
	writeJSON(w, http.StatusOK, success(`Article "`+a.Title+`" deleted successfully.`))
}

func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	writeJSON(w, http.StatusOK, envelope(s.categories, ""))
}

func (s *Server) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	var rv content.Review
	if err := json.NewDecoder(r.Body).Decode(&rv); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}
	if err := rv.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, err.(*apimodel.FieldErrors).Fields)
		return
	}

	score := predict(rv.Message)
	s.lock.Lock()
	defer s.lock.Unlock()
	rv.ID = int64(len(s.reviews) + 1)
	rv.PredictedSatisfaction = &score
	rv.CreatedAt = time.Now().UTC()
	s.reviews = append(s.reviews, rv)
	writeJSON(w, http.StatusCreated, envelope(rv, "Review saved successfully."))
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	var req content.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Features == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "'features'"})
		return
	}
	writeJSON(w, http.StatusOK, content.PredictResponse{Prediction: predict(req.Features)})
}

// predict is a stand-in for the satisfaction model: 1 when the message reads positive.
func predict(message string) int {
	m := strings.ToLower(message)
	for _, word := range []string{"great", "love", "good", "excellent", "thanks"} {
		if strings.Contains(m, word) {
			return 1
		}
	}
	return 0
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, content.Health{Status: "ok", Service: "weeb_api", Environment: "test"})
}
