package main

import (
	"database/sql"
	"fmt"
	"log"

	"issuance-backend/internal/config"
	"issuance-backend/internal/db"

	_ "github.com/lib/pq"
)

// Connects with the configured DSN, runs the automigration, and prints the
// row counts of the durable tables. Useful before first deploy and after
// schema changes.
func main() {
	fmt.Println("Verifying database connection and schema...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Raw connectivity probe before gorm touches the schema.
	probe, err := sql.Open("postgres", config.AppConfig.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	if err := probe.Ping(); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	probe.Close()

	db.InitDB()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("Connected to database: %s\n", dbName)

	tables := []string{
		"agent_grant_records",
		"role_assignments",
		"supported_tokens",
		"router_whitelist_entries",
		"operation_records",
		"permit_nonces",
		"reserve_snapshots",
	}

	for _, table := range tables {
		var count int64
		if err := sqlDB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("  %-26s %d rows\n", table, count)
	}

	fmt.Println("Schema verified")
}
