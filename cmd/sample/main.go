package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/typemap"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	dbURL := flag.String("db", "", "PostgreSQL connection URL (or set DATABASE_URL env)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	// Setup logging
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if *verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	registry, err := typemap.NewDefaultRegistry()
	if err != nil {
		sugar.Fatalf("Failed to build default registry: %v", err)
	}
	sugar.Infow("default registry ready", "storeTypes", registry.StoreTypes())

	// Render a literal for every registered array type.
	samples := map[string]any{
		"text[]":             []string{"red", "it's green", "blue"},
		"smallint[]":         []int16{1, 2},
		"integer[]":          []int32{1, 2, 3},
		"bigint[]":           []int64{9_000_000_000},
		"double precision[]": []float64{1.5, 2.25},
		"boolean[]":          []bool{true, false},
		"timestamptz[]":      []time.Time{time.Now().UTC()},
		"uuid[]":             []uuid.UUID{uuid.New()},
		"numeric[]":          []decimal.Decimal{decimal.RequireFromString("19.90")},
		"bytea[]":            [][]byte{{0xde, 0xad}, {0xbe, 0xef}},
		"jsonb[]":            []map[string]any{{"brand": "lychee", "qty": 3}},
	}

	literals := make(map[string]string, len(samples))
	for storeType, value := range samples {
		mapping, err := registry.Lookup(storeType)
		if err != nil {
			sugar.Fatalf("Lookup failed: %v", err)
		}
		lit, err := mapping.RenderLiteral(value)
		if err != nil {
			sugar.Fatalf("Render failed for %s: %v", storeType, err)
		}
		literals[storeType] = lit
		sugar.Infow("rendered array literal", "storeType", storeType, "literal", lit)
	}

	databaseURL := *dbURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		sugar.Info("No database URL provided, skipping round trip. Use -db or DATABASE_URL to enable it.")
		return
	}

	if err := roundTrip(context.Background(), databaseURL, literals, sugar); err != nil {
		sugar.Fatalf("Round trip failed: %v", err)
	}
	sugar.Info("Round trip completed")
}

// roundTrip creates a scratch table with one array column per rendered
// literal, inserts the literals as inline constants, and reads the row back.
func roundTrip(ctx context.Context, databaseURL string, literals map[string]string, sugar *zap.SugaredLogger) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	ddl := "CREATE TEMPORARY TABLE typemap_sample ("
	insert := "INSERT INTO typemap_sample ("
	values := "VALUES ("
	i := 0
	for storeType, lit := range literals {
		if i > 0 {
			ddl += ", "
			insert += ", "
			values += ", "
		}
		col := fmt.Sprintf("col_%02d", i)
		ddl += fmt.Sprintf("%s %s", col, storeType)
		insert += col
		values += lit
		i++
	}
	ddl += ")"
	insert += ") " + values + ")"

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	sugar.Debugw("creating scratch table", "ddl", ddl)
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	sugar.Debugw("inserting rendered literals", "sql", insert)
	if _, err := conn.Exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	var count int
	if err := conn.QueryRow(ctx, "SELECT count(*) FROM typemap_sample").Scan(&count); err != nil {
		return fmt.Errorf("failed to read back: %w", err)
	}
	sugar.Infow("inserted rendered literals", "rows", count, "columns", len(literals))
	return nil
}
