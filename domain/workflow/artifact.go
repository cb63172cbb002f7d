package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/uptrace/bun"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
)

// artifactRecord is the durable row behind an Artifact attempt,
// content-addressed by (session_id, step, attempt_index) per §3. Files
// are stored as a single jsonb column rather than a blob-store reference:
// generation artifacts here are source-file text, not binary payloads, so
// a relational column is sufficient and keeps the operational store the
// single place engine state lives. A future move to a blob store (S3 via
// ArtifactStorageConfig) would only change how this row's Files field is
// populated, not the repository's read/write contract.
type artifactRecord struct {
	bun.BaseModel `bun:"table:workflow.artifacts,alias:art"`

	SessionID     string `bun:"session_id,pk" json:"session_id"`
	Step          string `bun:"step,pk" json:"step"`
	AttemptIndex  int    `bun:"attempt_index,pk" json:"attempt_index"`
	FilesJSON     string `bun:"files_json,type:jsonb,notnull" json:"files_json"`
	Truncated     bool   `bun:"truncated,notnull" json:"truncated"`
	RawText       string `bun:"raw_text" json:"raw_text"`
}

// ArtifactStore persists and retrieves step Artifacts.
type ArtifactStore struct {
	db bun.IDB
}

func NewArtifactStore(db bun.IDB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// Save writes one attempt's Artifact, keyed by (session_id, step,
// attempt_index). Saving the same key again overwrites the stored files,
// truncated flag and raw text. The engine saves only artifacts the
// supervisor approved, so rejected or failed attempts are not stored.
func (s *ArtifactStore) Save(ctx context.Context, sessionID string, attemptIndex int, a agentinvoke.Artifact) error {
	filesJSON, err := json.Marshal(a.Files)
	if err != nil {
		return err
	}
	rec := &artifactRecord{
		SessionID:    sessionID,
		Step:         a.Step,
		AttemptIndex: attemptIndex,
		FilesJSON:    string(filesJSON),
		Truncated:    a.Truncated,
		RawText:      a.RawText,
	}
	_, err = s.db.NewInsert().Model(rec).
		On("CONFLICT (session_id, step, attempt_index) DO UPDATE").
		Set("files_json = EXCLUDED.files_json").
		Set("truncated = EXCLUDED.truncated").
		Set("raw_text = EXCLUDED.raw_text").
		Exec(ctx)
	return err
}

// Latest returns the most recent attempt's Artifact for (sessionID,
// step), or (Artifact{}, false, nil) if the step has never run.
func (s *ArtifactStore) Latest(ctx context.Context, sessionID, step string) (agentinvoke.Artifact, bool, error) {
	rec := new(artifactRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("session_id = ?", sessionID).
		Where("step = ?", step).
		Order("attempt_index DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return agentinvoke.Artifact{}, false, nil
		}
		return agentinvoke.Artifact{}, false, err
	}
	return rec.toArtifact(), true, nil
}

// LatestByNames resolves Latest for every step name given, skipping any
// that have never run.
func (s *ArtifactStore) LatestByNames(ctx context.Context, sessionID string, steps []string) (map[string]agentinvoke.Artifact, error) {
	out := make(map[string]agentinvoke.Artifact, len(steps))
	for _, step := range steps {
		a, ok, err := s.Latest(ctx, sessionID, step)
		if err != nil {
			return nil, err
		}
		if ok {
			out[step] = a
		}
	}
	return out, nil
}

func (rec *artifactRecord) toArtifact() agentinvoke.Artifact {
	var files []agentinvoke.FileBlock
	_ = json.Unmarshal([]byte(rec.FilesJSON), &files)
	return agentinvoke.Artifact{
		Step:      rec.Step,
		Files:     files,
		Truncated: rec.Truncated,
		RawText:   rec.RawText,
	}
}
