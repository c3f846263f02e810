package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"streakio/api"
	"streakio/clients/gcp"
	"streakio/envvars"
	"streakio/events"
	"streakio/services/auth"
	"streakio/services/entry"
	"streakio/services/export"
	"streakio/services/streak"
	"streakio/services/user"
	"streakio/validator"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	ginmiddleware "github.com/oapi-codegen/gin-middleware"
)

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, reading environment directly")
	}
	env := envvars.GetEnv()

	firestore := gcp.CreateFirestore(ctx, env.ProjectID)
	defer firestore.Close()
	adminAuth := gcp.CreateFirebaseAuth(ctx, env.ProjectID)

	notifier := events.NewNotifier()
	userService := user.NewService(firestore)
	streakService := streak.NewService(firestore, userService)
	entryService := entry.NewService(firestore)
	exportService := export.NewService(env.ExportBucket, streakService, entryService, userService)
	authService := auth.NewService(resty.New(), env.WebAPIKey, adminAuth, userService)

	server := api.NewServer(authService, userService, streakService, entryService, exportService, notifier)

	swagger, err := api.LoadSpec("./api/openapi.yaml")
	if err != nil {
		slog.With("error", err.Error()).Error("failed to load openapi spec")
		return
	}
	// Clear out the servers array in the swagger spec, that skips validating
	// that server names match. We don't know how this thing will be run.
	swagger.Servers = nil

	if envvars.IsProd(env) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/openapi", func(c *gin.Context) {
		c.Header("Content-Type", "application/x-yaml")
		c.File("./api/openapi.yaml")
	})

	verifier := validator.NewVerifier(ctx, env.ProjectID)
	r.Use(ginmiddleware.OapiRequestValidatorWithOptions(swagger, &ginmiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: verifier.Authenticate,
		},
	}))
	server.RegisterRoutes(r)

	s := &http.Server{
		Handler: r,
		Addr:    "0.0.0.0:8080",
	}

	slog.Info("Starting HTTP server on port 8080")
	log.Fatal(s.ListenAndServe())
}
