package content

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/client"
	"github.com/jrsteele09/weeb-client/internal/errors"
)

// Sender is the request pipeline the service calls through.
type Sender interface {
	Do(ctx context.Context, req *client.Request, out any) error
}

// Service wraps the blog and review endpoints. Protected calls rely on the pipeline for
// the bearer token and for recovering from an expired one.
type Service struct {
	api Sender
}

func NewService(api Sender) *Service {
	return &Service{api: api}
}

// ListArticles returns every article. The API answers 404 for an empty list; that is
// reported as no articles rather than an error.
func (s *Service) ListArticles(ctx context.Context) ([]Article, error) {
	var env Envelope[[]Article]
	err := s.api.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteArticles, nil), &env)
	if errors.Is(err, errors.ErrNotFound) {
		return []Article{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list articles")
	}
	return env.Results, nil
}

func (s *Service) GetArticle(ctx context.Context, id int64) (*Article, error) {
	var env Envelope[*Article]
	if err := s.api.Do(ctx, client.NewRequest(http.MethodGet, articlePath(id), nil), &env); err != nil {
		return nil, errors.Wrapf(err, "get article %d", id)
	}
	return env.Results, nil
}

// CreateArticle publishes an article as the signed-in user. The account must be active.
func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (*Article, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var env Envelope[*Article]
	if err := s.api.Do(ctx, client.NewRequest(http.MethodPost, apimodel.RouteArticles, in), &env); err != nil {
		return nil, errors.Wrapf(err, "create article")
	}
	return env.Results, nil
}

// UpdateArticle applies a partial update. Only the author, moderators and staff may edit.
func (s *Service) UpdateArticle(ctx context.Context, id int64, in ArticleInput) (*Article, error) {
	var env Envelope[*Article]
	if err := s.api.Do(ctx, client.NewRequest(http.MethodPatch, articlePath(id), in), &env); err != nil {
		return nil, errors.Wrapf(err, "update article %d", id)
	}
	return env.Results, nil
}

func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	return errors.Wrapf(s.api.Do(ctx, client.NewRequest(http.MethodDelete, articlePath(id), nil), nil), "delete article %d", id)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var env Envelope[[]Category]
	err := s.api.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteCategories, nil), &env)
	if errors.Is(err, errors.ErrNotFound) {
		return []Category{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list categories")
	}
	return env.Results, nil
}

// Catalog fetches articles and categories concurrently.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	var c Catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		articles, err := s.ListArticles(gctx)
		c.Articles = articles
		return err
	})
	g.Go(func() error {
		categories, err := s.ListCategories(gctx)
		c.Categories = categories
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

// SubmitReview posts a contact-form review. Anonymous and signed-in users may both submit.
func (s *Service) SubmitReview(ctx context.Context, r Review) (*Review, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var env Envelope[*Review]
	if err := s.api.Do(ctx, client.NewRequest(http.MethodPost, apimodel.RouteReviews, r), &env); err != nil {
		return nil, errors.Wrapf(err, "submit review")
	}
	return env.Results, nil
}

// Predict asks the satisfaction model to score a free-text message.
func (s *Service) Predict(ctx context.Context, message string) (int, error) {
	var out PredictResponse
	if err := s.api.Do(ctx, client.NewRequest(http.MethodPost, apimodel.RoutePredict, PredictRequest{Features: message}), &out); err != nil {
		return 0, errors.Wrapf(err, "predict satisfaction")
	}
	return out.Prediction, nil
}

func (s *Service) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := s.api.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteHealth, nil), &out); err != nil {
		return nil, errors.Wrapf(err, "health check")
	}
	return &out, nil
}

func articlePath(id int64) string {
	return fmt.Sprintf("%s%d/", apimodel.RouteArticles, id)
}
