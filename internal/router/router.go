package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"go-portfolio-cms/internal/config"
	"go-portfolio-cms/internal/handler"
	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/middleware"
	"go-portfolio-cms/internal/model"
)

type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	RecycleBin *handler.RecycleBinHandler
	Comments   *handler.CommentHandler
	Articles   *handler.ContentHandler[model.Article, model.ArticleRequest]
	Skills     *handler.ContentHandler[model.Skill, model.SkillRequest]
	Contacts   *handler.ContentHandler[model.Contact, model.ContactRequest]
	Suggest    *handler.SuggestHandler
	Avatars    *handler.AvatarHandler
	Files      *handler.FileHandler
	Metrics    *metrics.Metrics
	Live       http.Handler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(h.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	admin := chi.Chain(authMiddleware.RequireAuth, authMiddleware.RequireRoles(model.RoleAdmin))
	compress := func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) }
	timeout := middleware.Timeout(cfg.RequestTimeout)

	r.Route("/api", func(api chi.Router) {
		// File bytes are streamed, never buffered or recompressed.
		api.Group(func(files chi.Router) {
			files.Use(middleware.StreamingTimeout(cfg.FileTransferTimeout, cfg.FileIdleTimeout))
			files.Get("/files/{kind}/{filename}", h.Files.Serve)
		})

		api.Group(func(public chi.Router) {
			public.Use(compress, timeout)

			public.Post("/auth/login", h.Auth.Login)
			public.With(authMiddleware.RequireAuth).Get("/auth/me", h.Auth.Me)

			public.Get("/articles", h.Articles.List)
			public.Get("/articles/{id}", h.Articles.Get)
			public.Get("/articles/{id}/comments", h.Comments.ListPublic)
			public.With(authMiddleware.OptionalAuth).Post("/articles/{id}/comments", h.Comments.Submit)
			public.Get("/skills", h.Skills.List)
			public.Get("/contacts", h.Contacts.List)
			public.Get("/avatars/current", h.Avatars.Current)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(admin...)

			// The websocket needs the raw connection, so it skips the
			// buffering timeout and compression.
			if h.Live != nil {
				a.Get("/ws", h.Live.ServeHTTP)
			}

			a.Group(func(g chi.Router) {
				g.Use(compress, timeout)

				g.Get("/recycle-bin", h.RecycleBin.List)
				g.Post("/recycle-bin/clear", h.RecycleBin.Clear)
				g.Post("/recycle-bin/{id}/restore", h.RecycleBin.Restore)
				g.Delete("/recycle-bin/{id}", h.RecycleBin.Purge)

				g.Get("/comments", h.Comments.List)
				g.Get("/comments/export", h.Comments.Export)
				g.Get("/comments/limits", h.Comments.Limits)
				g.Put("/comments/{id}/status", h.Comments.UpdateStatus)
				g.Delete("/comments/{id}", h.Comments.Delete)

				g.Post("/articles/suggest", h.Suggest.Suggest)
				g.Post("/articles", h.Articles.Create)
				g.Put("/articles/{id}", h.Articles.Update)
				g.Delete("/articles/{id}", h.Articles.Delete)
				g.Post("/skills", h.Skills.Create)
				g.Put("/skills/{id}", h.Skills.Update)
				g.Delete("/skills/{id}", h.Skills.Delete)
				g.Post("/contacts", h.Contacts.Create)
				g.Put("/contacts/{id}", h.Contacts.Update)
				g.Delete("/contacts/{id}", h.Contacts.Delete)

				g.Get("/avatars", h.Avatars.List)
				g.Post("/avatars", h.Avatars.Upload)
				g.Put("/avatars/{id}/current", h.Avatars.SetCurrent)
				g.Delete("/avatars/{id}", h.Avatars.Delete)

				g.Post("/files/{kind}", h.Files.Upload)
				g.Delete("/files/{kind}/{filename}", h.Files.Delete)
			})
		})
	})

	return r
}
