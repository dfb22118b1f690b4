package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required (needs multiStatements=true)")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS payout_batches (
	  id CHAR(36) NOT NULL,
	  name VARCHAR(255) NOT NULL,
	  payment_method VARCHAR(32) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  provider_config JSON NULL,
	  provider_batch_id VARCHAR(128) NULL,
	  success_count INT NOT NULL DEFAULT 0,
	  failure_count INT NOT NULL DEFAULT 0,
	  pending_count INT NOT NULL DEFAULT 0,
	  total_amount_cents BIGINT NOT NULL DEFAULT 0,
	  error_message VARCHAR(512) NULL,
	  source_file_key VARCHAR(255) NULL,
	  processed_at DATETIME(3) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_batches_status (status),
	  KEY ix_batches_provider_batch (provider_batch_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS payout_payments (
	  id CHAR(36) NOT NULL,
	  batch_id CHAR(36) NOT NULL,
	  recipient_name VARCHAR(255) NOT NULL,
	  recipient_email VARCHAR(255) NOT NULL,
	  amount_cents BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  payment_method VARCHAR(32) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  payout_item_id VARCHAR(128) NULL,
	  order_id VARCHAR(128) NULL,
	  recipient_id VARCHAR(128) NULL,
	  contract_id VARCHAR(128) NULL,
	  error_code VARCHAR(64) NULL,
	  error_message VARCHAR(512) NULL,
	  meta JSON NULL,
	  initiated_at DATETIME(3) NOT NULL,
	  processed_at DATETIME(3) NULL,
	  completed_at DATETIME(3) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_payments_batch_id (batch_id),
	  KEY ix_payments_status (status),
	  KEY ix_payments_payout_item (payout_item_id),
	  KEY ix_payments_order_id (order_id),
	  KEY ix_payments_contract_id (contract_id),
	  CONSTRAINT fk_payments_batch FOREIGN KEY (batch_id) REFERENCES payout_batches(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS provider_events (
	  id CHAR(36) NOT NULL,
	  provider VARCHAR(64) NOT NULL,
	  event_id VARCHAR(128) NOT NULL,
	  event_type VARCHAR(64) NOT NULL,
	  payload_json JSON NOT NULL,
	  received_at DATETIME(3) NOT NULL,
	  processed_at DATETIME(3) NULL,
	  process_error VARCHAR(255) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_provider_events_provider_event (provider, event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS provider_refdata (
	  id CHAR(36) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  country CHAR(2) NOT NULL,
	  currency CHAR(3) NOT NULL,
	  fields JSON NOT NULL,
	  fetched_at DATETIME(3) NOT NULL,
	  expires_at DATETIME(3) NOT NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_refdata_key (provider, country, currency),
	  KEY ix_refdata_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Tables created successfully")
}
