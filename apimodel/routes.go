package apimodel

// Route path constants of the remote API
// Shared by the client packages and the fake API used in tests
const (
	// Auth Routes
	RouteAuthRegister = "/auth/register/"
	RouteAuthLogin    = "/auth/login/"
	RouteAuthLogout   = "/auth/logout/"
	RouteAuthRefresh  = "/auth/token/refresh/"
	RouteAuthMe       = "/auth/me/"

	// User management, staff only
	RouteUsers = "/users/"

	// Blog Routes
	RouteArticles   = "/blog/articles/"
	RouteCategories = "/blog/categories/"

	// Review Routes
	RouteReviews = "/review/"
	RoutePredict = "/predict/"

	// System Routes
	RouteHealth = "/health/"
)
