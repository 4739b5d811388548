package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/castlemilk/taxledger/backend/internal/logger"
	"github.com/castlemilk/taxledger/backend/internal/service"
	"github.com/castlemilk/taxledger/backend/internal/store"
	"github.com/castlemilk/taxledger/backend/internal/vault"
)

func main() {
	// NOTE: Default is 8112 to avoid conflicts with other projects (not 8080)
	port := os.Getenv("PORT")
	if port == "" {
		port = "8112"
	}

	ctx := context.Background()
	log := logger.New()

	// Determine if we're running locally
	useMemoryStore := os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local"

	var storeImpl store.Store
	if useMemoryStore {
		log.Info().Msg("using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
	} else {
		projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
		if projectID == "" {
			log.Fatal().Msg("GOOGLE_CLOUD_PROJECT is required when not using the memory store")
		}
		firestoreClient, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Firestore client")
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)
	}

	svc := service.NewLedgerService(storeImpl, log)

	// Receipt documents live in GCS; without a bucket the document endpoints
	// report unavailable and everything else still works.
	if bucket := os.Getenv("RECEIPT_BUCKET"); bucket != "" {
		gcsClient, err := gcsstorage.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create storage client")
		}
		defer gcsClient.Close()
		svc.SetVault(vault.New(gcsClient.Bucket(bucket)))
		log.Info().Str("bucket", bucket).Msg("receipt document vault enabled")
	}

	mux := http.NewServeMux()
	service.NewAPI(svc, log).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// NOTE: Frontend runs on port 1234, not 3000
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:1234",
			"http://127.0.0.1:1234",
			"https://taxledger.dev",
			"https://www.taxledger.dev",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
			"X-Tenant-ID",
		},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	log.Info().Str("port", port).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
