package envvars

import (
	"log"
	"os"
)

const (
	FirebaseProjectID = "FIREBASE_PROJECT_ID"
	FirebaseWebAPIKey = "FIREBASE_WEB_API_KEY"
	ExportBucket      = "EXPORT_BUCKET"
	Environment       = "ENVIRONMENT"
)

const (
	ProductionEnv = "production"
	DevEnv        = "dev"

	defaultExportBucket = "streakio-exports"
)

type Env struct {
	ProjectID    string
	WebAPIKey    string
	ExportBucket string
	Environment  string
}

func GetEnv() Env {
	projectID, ok := os.LookupEnv(FirebaseProjectID)
	if !ok {
		log.Fatalf("%s required", FirebaseProjectID)
	}
	webAPIKey, ok := os.LookupEnv(FirebaseWebAPIKey)
	if !ok {
		log.Fatalf("%s required", FirebaseWebAPIKey)
	}
	bucket, ok := os.LookupEnv(ExportBucket)
	if !ok {
		bucket = defaultExportBucket
	}
	environment, ok := os.LookupEnv(Environment)
	if !ok {
		environment = DevEnv
	}
	return Env{
		ProjectID:    projectID,
		WebAPIKey:    webAPIKey,
		ExportBucket: bucket,
		Environment:  environment,
	}
}

func IsProd(e Env) bool {
	return e.Environment == ProductionEnv
}

func IsDev(e Env) bool {
	return e.Environment == DevEnv
}
