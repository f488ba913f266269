package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/smilecook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 共通ミドルウェア
	Logger            *slog.Logger
	HTTPRecorder      middleware.HTTPRecorder
	CORSAllowedOrigin string
	SearchLimiter     *middleware.RateLimiter
	GeneralLimiter    *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// トークン
	LoginService LoginServiceInterface
	TokenService TokenServiceInterface

	// レシピ
	RecipeService RecipeServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// limit はリミッターが未設定の場合に素通しするミドルウェアを返す。
func limit(rl *middleware.RateLimiter) func(next http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware()
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (ルートごと) 認証 → RateLimit
//
// 認証はルート登録時にRequireAccess、OptionalAccess、RequireRefreshを明示的に合成する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	tokenHandler := NewTokenHandler(deps.LoginService, deps.TokenService)
	recipeHandler := NewRecipeHandler(deps.RecipeService)
	userHandler := NewUserHandler(deps.UserService)

	requireAccess := middleware.RequireAccess(deps.TokenService)
	optionalAccess := middleware.OptionalAccess(deps.TokenService)
	requireRefresh := middleware.RequireRefresh(deps.TokenService)
	general := limit(deps.GeneralLimiter)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- トークン ---
	r.With(general).Post("/token", tokenHandler.Issue)
	r.With(requireRefresh, general).Post("/refresh", tokenHandler.Refresh)
	r.With(requireAccess, general).Post("/revoke", tokenHandler.Revoke)
	r.With(requireRefresh, general).Post("/revoke/refresh", tokenHandler.Revoke)

	// --- レシピ ---
	r.Route("/recipes", func(r chi.Router) {
		// GET /recipes - 公開レシピ検索（クライアントIP単位のレート制限）
		r.With(limit(deps.SearchLimiter)).Get("/", recipeHandler.Search)
		r.With(requireAccess, general).Post("/", recipeHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(optionalAccess, general).Get("/", recipeHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAccess)
				r.Use(general)

				r.Patch("/", recipeHandler.Update)
				r.Delete("/", recipeHandler.Delete)
				r.Put("/publish", recipeHandler.Publish)
				r.Delete("/publish", recipeHandler.Unpublish)
			})
		})
	})

	// --- ユーザー ---
	r.Route("/users", func(r chi.Router) {
		r.With(general).Post("/", userHandler.Register)
		r.With(general).Get("/activate/{token}", userHandler.Activate)

		r.Route("/{username}", func(r chi.Router) {
			r.With(optionalAccess, general).Get("/", userHandler.Get)
			r.With(requireAccess, general).Get("/recipes", recipeHandler.ListByUser)
		})
	})

	r.With(requireAccess, general).Get("/me", userHandler.Me)

	return r
}
