package gcp

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
)

// CreateFirebaseAuth returns an Admin SDK auth client for the given project.
// Credentials come from the ambient service account.
func CreateFirebaseAuth(ctx context.Context, projectID string) *auth.Client {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		log.Fatalf("Failed to create firebase app: %v", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to create firebase auth client: %v", err)
	}
	return client
}
