package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'active',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id);

CREATE TABLE IF NOT EXISTS videos (
    id                  UUID PRIMARY KEY,
    project_id          UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    filename            TEXT NOT NULL DEFAULT '',
    filepath            TEXT NOT NULL DEFAULT '',
    filesize            BIGINT NOT NULL DEFAULT 0,
    filetype            TEXT NOT NULL DEFAULT '',
    duration            DOUBLE PRECISION NOT NULL DEFAULT 0,
    thumbnail           TEXT,
    status              TEXT NOT NULL DEFAULT 'pending',
    processing_progress INTEGER NOT NULL DEFAULT 0,
    error_message       TEXT,
    transcript          TEXT,
    ai_script           TEXT,
    captions            JSONB,
    cuts                JSONB,
    voiceover           TEXT,
    zoom_points         JSONB,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_videos_project_id ON videos(project_id);
CREATE INDEX IF NOT EXISTS idx_videos_status_updated_at ON videos(status, updated_at);
`

func main() {
	var dropFlag bool
	flag.BoolVar(&dropFlag, "drop", false, "drop all tables before applying the schema")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	db.SetConnMaxLifetime(time.Minute)
	if err := db.Ping(); err != nil {
		exitWithError(fmt.Errorf("ping database: %w", err))
	}

	if dropFlag {
		if _, err := db.Exec(`DROP TABLE IF EXISTS videos, projects, users CASCADE`); err != nil {
			exitWithError(fmt.Errorf("drop tables: %w", err))
		}
		fmt.Println("dropped existing tables")
	}

	if _, err := db.Exec(schema); err != nil {
		exitWithError(fmt.Errorf("apply schema: %w", err))
	}
	fmt.Println("schema applied")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
