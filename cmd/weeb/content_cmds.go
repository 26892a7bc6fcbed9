package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/content"
	"github.com/jrsteele09/weeb-client/internal/errors"
)

func articlesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "list, read and publish articles",
	}
	cmd.AddCommand(articlesListCmd(a), articlesGetCmd(a), articlesCreateCmd(a))
	return cmd
}

func articlesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			articles, err := a.session.Content().ListArticles(cmd.Context())
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No articles found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tAUTHOR\tCREATED")
			for _, art := range articles {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", art.ID, art.Title, categoryName(art.Category), authorName(art), art.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func articlesGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid article id %q", args[0])
			}
			art, err := a.session.Content().GetArticle(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", art.Title, strings.Repeat("=", len(art.Title)))
			fmt.Fprintf(out, "by %s in %s, %s\n\n", authorName(*art), categoryName(art.Category), art.CreatedAt.Format("2006-01-02"))
			fmt.Fprintln(out, art.Content)
			return nil
		},
	}
}

func articlesCreateCmd(a *app) *cobra.Command {
	var in content.ArticleInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "publish an article (requires an active account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.State().Authenticated {
				return errors.ErrNotAuthenticated
			}
			art, err := a.session.Content().CreateArticle(cmd.Context(), in)
			var fe *apimodel.FieldErrors
			if errors.As(err, &fe) {
				printFieldErrors(cmd.ErrOrStderr(), fe)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published article %d\n", art.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "article title")
	cmd.Flags().StringVarP(&in.Content, "content", "c", "", "article body")
	cmd.Flags().Int64Var(&in.CategoryID, "category", 0, "category id (see 'weeb categories')")
	return cmd
}

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "list article categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.session.Content().ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func reviewCmd(a *app) *cobra.Command {
	var r content.Review
	cmd := &cobra.Command{
		Use:   "review <message>",
		Short: "send a review through the contact form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r.Message = strings.Join(args, " ")
			if user := a.session.State().User; user != nil {
				if r.Email == "" {
					r.Email = user.Email
				}
				if r.FirstName == "" {
					r.FirstName = user.FirstName
				}
				if r.LastName == "" {
					r.LastName = user.LastName
				}
			}

			saved, err := a.session.Content().SubmitReview(cmd.Context(), r)
			var fe *apimodel.FieldErrors
			if errors.As(err, &fe) {
				printFieldErrors(cmd.ErrOrStderr(), fe)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Thank you for your review.")
			if saved.PredictedSatisfaction != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "predicted satisfaction: %d\n", *saved.PredictedSatisfaction)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&r.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&r.LastName, "last-name", "", "last name")
	cmd.Flags().StringVarP(&r.Email, "email", "e", "", "contact email")
	cmd.Flags().StringVar(&r.Phone, "phone", "", "contact phone")
	return cmd
}

func predictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <message>",
		Short: "score a message with the satisfaction model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := a.session.Content().Predict(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prediction: %d\n", score)
			return nil
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check the API is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.session.Content().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", h.Status, h.Service, h.Environment)
			return nil
		},
	}
}

func categoryName(c *content.Category) string {
	if c == nil {
		return "-"
	}
	return c.Name
}

func authorName(art content.Article) string {
	if art.Author == nil {
		return "-"
	}
	return art.Author.DisplayName()
}
