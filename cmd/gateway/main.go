package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/quizpulse/quizpulse-backend/internal/api/http"
	auth "github.com/quizpulse/quizpulse-backend/internal/auth/middleware"
	"github.com/quizpulse/quizpulse-backend/internal/config"
	"github.com/quizpulse/quizpulse-backend/internal/db"
	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh, cfg.DBDriver)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, cfg.AdminUser, cfg.AdminPassHash))

	// Protected API (JWT -> subject/role in context -> DB role override -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Quiz authoring (admin)
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:delete")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(store))

		// Quiz taking
		pr.With(rbac.Require("quiz:list")).
			Get("/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts", api.SubmitAttemptHandler(store))

		// Results and analytics
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results", api.ListResultsHandler(store))
		pr.With(rbac.Require("analytics:view-own")).
			Get("/analytics/dashboard", api.DashboardHandler(store))
		pr.With(rbac.Require("activity:view-own")).
			Get("/analytics/activity", api.ActivityHandler(store))
		pr.With(rbac.Require("analytics:view-all")).
			Get("/admin/analytics", api.AdminOverviewHandler(store))

		// Goals
		pr.With(rbac.Require("goal:manage-own")).
			Post("/goals", api.CreateGoalHandler(store))
		pr.With(rbac.Require("goal:manage-own")).
			Get("/goals", api.ListGoalsHandler(store))
		pr.With(rbac.Require("goal:manage-own")).
			Delete("/goals/{goalID}", api.DeleteGoalHandler(store))

		// Users (admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
		pr.With(rbac.Require("users:update_role")).
			Patch("/admin/users/{userID}/role", api.AdminUpdateUserRoleHandler(dbh))

		// Account data governance (admin)
		pr.With(rbac.Require("users:data_export")).
			Post("/admin/users/data-export", api.AdminExportUserDataHandler(dbh, store))
		pr.With(rbac.Require("users:data_delete")).
			Post("/admin/users/data-delete", api.AdminDeleteUserDataHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
