package testutils

import (
	"context"
	"fmt"
	"log"
	"main/utils"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mutex to protect environment variable access across parallel tests
var envMutex sync.Mutex

// SetupTestEnvironment sets up the test environment variables
func SetupTestEnvironment() {
	rootDir := findProjectRoot()
	if envPath := filepath.Join(rootDir, ".env"); rootDir != "" {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded .env file from: %s", envPath)
		}
	}

	envMutex.Lock()
	defer envMutex.Unlock()

	os.Setenv("GO_ENV", "test")
	os.Setenv("JWT_SECRET_KEY", "test_secret_key")

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	os.Setenv("TEST_MONGO_URI", mongoURI)

	// Test packages run as separate processes that may overlap; a per-pid
	// database name keeps their cleanup drops from colliding.
	if os.Getenv("MONGO_DB_TEST") == "" {
		dbName := fmt.Sprintf("timecore_test_%d", os.Getpid())
		os.Setenv("MONGO_DB", dbName)
		os.Setenv("MONGO_DB_TEST", dbName)
	}
	os.Setenv("SESSIONS_COLLECTION", "sessions")
	os.Setenv("SUMMARIES_COLLECTION", "daily_summaries")

	utils.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// SetupTestDB connects to the test database and returns a cleanup function.
// Skips the calling test when no MongoDB is reachable.
func SetupTestDB(t *testing.T) (*mongo.Client, func()) {
	t.Helper()

	if os.Getenv("GO_ENV") != "test" {
		SetupTestEnvironment()
	}

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100)).
		SetMinPoolSize(utils.GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 10))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not reachable: %v", err)
	}

	cleanup := func() {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		dbName := os.Getenv("MONGO_DB_TEST")
		if dbName != "" {
			if err := client.Database(dbName).Drop(ctx); err != nil {
				t.Logf("Warning: Failed to drop test database %s: %v", dbName, err)
			}
		}

		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Warning: Failed to disconnect: %v", err)
		}
	}

	return client, cleanup
}
