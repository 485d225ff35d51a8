package repository

import (
	"database/sql"
	"time"
)

type Repo struct {
	db *sql.DB
}

// Position is a saved playback position for a media file, keyed by
// the file's absolute path.
type Position struct {
	Path      string
	Micros    int64
	UpdatedAt time.Time
}
