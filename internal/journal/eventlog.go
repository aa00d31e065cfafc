package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types recorded around an attempt.
const (
	QuizSubmitted       = "QuizSubmitted"
	AttemptConfirmed    = "AttemptConfirmed"
	AttemptFailed       = "AttemptFailed"
	CompletionConfirmed = "CompletionConfirmed"
	CompletionFailed    = "CompletionFailed"
	QuizzesPending      = "QuizzesPending"
)

type Event struct {
	Offset    int64           `json:"offset"`
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
}

// Key is the natural key events for one (training, user) pair share.
func Key(trainingID, userID string) string {
	return "training/" + trainingID + "/user/" + userID
}

type Repo struct {
	db     *sql.DB
	source string
	now    func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, source: "local", now: time.Now} }

func (r *Repo) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Source == "" {
		e.Source = r.source
	}
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (id, source, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Source, e.Type, e.Key, string(e.Data), r.now().Unix())
	return err
}

// Record marshals payload and appends it as an event of type typ.
func (r *Repo) Record(ctx context.Context, typ, key string, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("journal %s: %w", typ, err)
	}
	return r.Append(ctx, Event{Type: typ, Key: key, Data: buf})
}

// List returns up to limit events for key, oldest first. An empty key lists
// every key.
func (r *Repo) List(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT "offset", id, source, typ, key, data, created_at FROM event_log
			 ORDER BY "offset" DESC LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT "offset", id, source, typ, key, data, created_at FROM event_log
			 WHERE key = $1 ORDER BY "offset" DESC LIMIT $2`, key, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			data string
		)
		if err := rows.Scan(&e.Offset, &e.ID, &e.Source, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
