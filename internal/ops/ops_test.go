package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/metrics"
)

// testEnv bundles the pieces most operations need. Each test gets its own
// database under t.TempDir; the metrics singleton is shared across the test
// binary, so tests assert on database state rather than counter values.
type testEnv struct {
	db    *sql.DB
	cfg   *config.Config
	m     *metrics.Metrics
	sched *Scheduler
}

// newTestEnv creates a test environment whose scheduler uses the given
// grace period. Lifecycle tests pass a few tens of milliseconds; tests that
// must not see a purge fire pass something long.
func newTestEnv(t *testing.T, delay time.Duration) *testEnv {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	m := metrics.Init(prometheus.NewRegistry())
	sched := NewScheduler(database, delay, zerolog.Nop(), m)
	t.Cleanup(sched.Close)

	return &testEnv{
		db:    database,
		cfg:   config.DefaultConfig(),
		m:     m,
		sched: sched,
	}
}

// seedUser inserts a user and returns the matching viewer.
func seedUser(t *testing.T, env *testEnv, name string, admin bool) Viewer {
	t.Helper()
	err := db.InsertUser(context.Background(), env.db, &creature.User{
		Name:                  name,
		PasswordHash:          "x",
		Admin:                 admin,
		DefaultVisibility:     creature.VisibilityPrivate,
		DefaultNoteVisibility: creature.VisibilityPrivate,
		CreatedAt:             time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	return Viewer{Name: name, Admin: admin}
}

// rawSave marshals a payload into the canonical JSON upload format.
func rawSave(t *testing.T, p *creature.Payload) []byte {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return raw
}

// samplePayload is a valid canonical payload. Tests that need a distinct
// fingerprint change a field.
func samplePayload() *creature.Payload {
	return &creature.Payload{
		Species:     658,
		Nickname:    "Sobble Senior",
		Level:       50,
		Nature:      "timid",
		Ability:     "protean",
		Gender:      "M",
		Moves:       []string{"surf", "ice-beam", "dark-pulse", "u-turn"},
		IVs:         []int{31, 0, 31, 31, 31, 31},
		EVs:         []int{0, 0, 4, 252, 0, 252},
		OriginGame:  "x",
		Ball:        "poke-ball",
		TrainerName: "Calem",
		TrainerID:   53437,
		SecretID:    12345,
		PID:         0xDEADBEEF,
	}
}

// mustUpload stores a creature for the viewer and fails the test on error.
func mustUpload(t *testing.T, env *testEnv, viewer Viewer, p *creature.Payload, visibility string) *UploadOutput {
	t.Helper()
	out, err := Upload(context.Background(), env.db, env.cfg, creature.JSONDecoder{}, env.m, UploadInput{
		Viewer:     viewer,
		Raw:        rawSave(t, p),
		Visibility: visibility,
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return out
}

func stringPtr(s string) *string {
	return &s
}
