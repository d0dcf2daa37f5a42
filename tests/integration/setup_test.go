//go:build integration

// Package integration contains integration tests for the trading core.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: journal schema, inserts, queries
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"tradecore/internal/api"
	"tradecore/internal/execution"
	"tradecore/internal/models"
	"tradecore/internal/repository"
	"tradecore/internal/websocket"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Engine  *execution.Engine
	Reports *repository.ReportRepository
	Fills   *repository.FillRepository
	Cleanup func()
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "tradecore_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection and ensures the schema exists
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := createSchema(db); err != nil {
		db.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// createSchema creates the journal tables used by the repositories
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS order_status_reports (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			venue TEXT NOT NULL,
			client_order_id TEXT NOT NULL,
			venue_order_id TEXT NOT NULL DEFAULT '',
			side INT NOT NULL,
			order_type INT NOT NULL,
			time_in_force INT NOT NULL,
			status INT NOT NULL,
			qty_raw BIGINT NOT NULL,
			qty_precision INT NOT NULL,
			filled_raw BIGINT NOT NULL,
			price_raw BIGINT NOT NULL,
			price_precision INT NOT NULL,
			trigger_raw BIGINT NOT NULL,
			trigger_precision INT NOT NULL,
			avg_px DOUBLE PRECISION NOT NULL,
			post_only BOOLEAN NOT NULL,
			reduce_only BOOLEAN NOT NULL,
			cancel_reason TEXT NOT NULL DEFAULT '',
			ts_accepted BIGINT NOT NULL,
			ts_triggered BIGINT NOT NULL,
			ts_last BIGINT NOT NULL,
			ts_init BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_client_order_id
			ON order_status_reports (client_order_id, ts_last DESC)`,
		`CREATE TABLE IF NOT EXISTS fills (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			venue TEXT NOT NULL,
			client_order_id TEXT NOT NULL,
			venue_order_id TEXT NOT NULL DEFAULT '',
			trade_id TEXT NOT NULL,
			side INT NOT NULL,
			qty_raw BIGINT NOT NULL,
			qty_precision INT NOT NULL,
			px_raw BIGINT NOT NULL,
			px_precision INT NOT NULL,
			commission_raw BIGINT NOT NULL,
			commission_currency TEXT NOT NULL DEFAULT '',
			liquidity_side INT NOT NULL,
			position_id TEXT NOT NULL DEFAULT '',
			ts_event BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (venue, trade_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// truncateTables clears journal tables between tests
func truncateTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"order_status_reports", "fills"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}

// testInstrument builds the perpetual used across the integration suite
func testInstrument(t *testing.T) models.Instrument {
	t.Helper()
	instrument, err := models.NewPerpetualInstrument(models.InstrumentBase{
		InstrumentID:  models.NewInstrumentID("XBTUSD", "BITMEX"),
		Symbol:        "XBTUSD",
		Base:          "BTC",
		Quote:         "USD",
		Settlement:    "XBT",
		Inverse:       true,
		PriceAccuracy: 1,
		SizeAccuracy:  0,
		PriceStep:     models.MustPrice(0.5, 1),
		SizeStep:      models.MustQuantity(1, 0),
	})
	if err != nil {
		t.Fatalf("Failed to build instrument: %v", err)
	}
	return instrument
}

// SetupTestServer builds the full HTTP stack on top of a test database
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	truncateTables(t, db)

	reports := repository.NewReportRepository(db)
	fills := repository.NewFillRepository(db)

	engine := execution.NewEngine(execution.Config{
		TraderID:   "TRADER-IT",
		StrategyID: "S-IT",
		AccountID:  "IT-1",
	}, nil, reports, fills)
	if err := engine.AddInstrument(testInstrument(t)); err != nil {
		t.Fatalf("Failed to register instrument: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	router := api.SetupRoutes(&api.Dependencies{
		Engine:  engine,
		Reports: reports,
	})
	router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})

	server := httptest.NewServer(router)

	return &TestServer{
		DB:      db,
		Router:  router,
		Server:  server,
		Hub:     hub,
		Engine:  engine,
		Reports: reports,
		Fills:   fills,
		Cleanup: func() {
			server.Close()
			hub.Stop()
			dbCleanup()
		},
	}
}
