package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/fingerprint"
)

// Store persists runs and their stage checkpoints in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateRun(ctx context.Context, r *Run) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, video_path, output_dir, params, stage, status, error, total_frames, fps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.VideoPath, r.OutputDir, r.ParamsJSON, r.Stage, r.Status, r.Error,
		r.TotalFrames, r.FPS, r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339))
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_path, output_dir, params, stage, status, error, total_frames, fps, created_at, updated_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRunForVideo returns the newest run for a video path, or nil.
func (s *Store) LatestRunForVideo(ctx context.Context, videoPath string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_path, output_dir, params, stage, status, error, total_frames, fps, created_at, updated_at
		FROM runs WHERE video_path = ? ORDER BY created_at DESC LIMIT 1
	`, videoPath)
	return scanRun(row)
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_path, output_dir, params, stage, status, error, total_frames, fps, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, errorMsg, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (s *Store) UpdateRunStage(ctx context.Context, id, stage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET stage = ?, updated_at = ? WHERE id = ?
	`, stage, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// SaveCandidates replaces the coarse-scan checkpoint of a run.
func (s *Store) SaveCandidates(ctx context.Context, runID string, candidates []int) error {
	data, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_candidates (run_id, frame_indices) VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET frame_indices = excluded.frame_indices
	`, runID, string(data))
	return err
}

func (s *Store) LoadCandidates(ctx context.Context, runID string) ([]int, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT frame_indices FROM run_candidates WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var candidates []int
	if err := json.Unmarshal([]byte(data), &candidates); err != nil {
		return nil, fmt.Errorf("corrupt candidate checkpoint for run %s: %w", runID, err)
	}
	return candidates, nil
}

// SaveRecords replaces the accepted-record checkpoint of a run,
// preserving emitted flags for records that already made it to disk.
func (s *Store) SaveRecords(ctx context.Context, runID string, records []*detect.SlideRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	emitted := make(map[int]string)
	rows, err := tx.QueryContext(ctx,
		`SELECT frame_index, filename FROM slide_records WHERE run_id = ? AND emitted = 1`, runID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var idx int
		var filename string
		if err := rows.Scan(&idx, &filename); err != nil {
			rows.Close()
			return err
		}
		emitted[idx] = filename
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM slide_records WHERE run_id = ?`, runID); err != nil {
		return err
	}
	for _, rec := range records {
		filename, wasEmitted := emitted[rec.FrameIndex]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slide_records (run_id, frame_index, timestamp, phash, dhash, mean_luma, group_id, subgroup_index, sharpness, emitted, filename)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, rec.FrameIndex, rec.Timestamp,
			rec.Fingerprint.PHash.String(), rec.Fingerprint.DHash.String(), rec.Fingerprint.MeanLuma,
			rec.GroupID, rec.SubgroupIndex, rec.Sharpness, boolToInt(wasEmitted), filename)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadRecords(ctx context.Context, runID string) ([]*detect.SlideRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, timestamp, phash, dhash, mean_luma, group_id, subgroup_index, sharpness
		FROM slide_records WHERE run_id = ? ORDER BY frame_index
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*detect.SlideRecord
	for rows.Next() {
		var rec detect.SlideRecord
		var phash, dhash string
		var meanLuma int
		if err := rows.Scan(&rec.FrameIndex, &rec.Timestamp, &phash, &dhash, &meanLuma,
			&rec.GroupID, &rec.SubgroupIndex, &rec.Sharpness); err != nil {
			return nil, err
		}
		rec.Fingerprint.MeanLuma = uint8(meanLuma)
		if rec.Fingerprint.PHash, err = fingerprint.ParseHash(phash); err != nil {
			return nil, fmt.Errorf("corrupt record checkpoint for run %s: %w", runID, err)
		}
		if rec.Fingerprint.DHash, err = fingerprint.ParseHash(dhash); err != nil {
			return nil, fmt.Errorf("corrupt record checkpoint for run %s: %w", runID, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// MarkEmitted records that a slide image was durably written.
func (s *Store) MarkEmitted(ctx context.Context, runID string, frameIndex int, filename string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE slide_records SET emitted = 1, filename = ? WHERE run_id = ? AND frame_index = ?
	`, filename, runID, frameIndex)
	return err
}

// EmittedFiles returns frame index -> filename for records already on
// disk, letting a resumed emit skip finished images.
func (s *Store) EmittedFiles(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_index, filename FROM slide_records WHERE run_id = ? AND emitted = 1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emitted := make(map[int]string)
	for rows.Next() {
		var idx int
		var filename string
		if err := rows.Scan(&idx, &filename); err != nil {
			return nil, err
		}
		emitted[idx] = filename
	}
	return emitted, rows.Err()
}

// Checkpointer binds a Store to one run, satisfying detect.Checkpointer.
type Checkpointer struct {
	store *Store
	runID string
}

func (s *Store) Checkpointer(runID string) *Checkpointer {
	return &Checkpointer{store: s, runID: runID}
}

func (c *Checkpointer) StageComplete(ctx context.Context, stage string) error {
	return c.store.UpdateRunStage(ctx, c.runID, stage)
}

func (c *Checkpointer) SaveCandidates(ctx context.Context, candidates []int) error {
	return c.store.SaveCandidates(ctx, c.runID, candidates)
}

func (c *Checkpointer) SaveRecords(ctx context.Context, records []*detect.SlideRecord) error {
	return c.store.SaveRecords(ctx, c.runID, records)
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	var createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.VideoPath, &r.OutputDir, &r.ParamsJSON, &r.Stage,
		&r.Status, &r.Error, &r.TotalFrames, &r.FPS, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

func scanRunRows(rows *sql.Rows) (*Run, error) {
	var r Run
	var createdAt, updatedAt string
	err := rows.Scan(&r.ID, &r.VideoPath, &r.OutputDir, &r.ParamsJSON, &r.Stage,
		&r.Status, &r.Error, &r.TotalFrames, &r.FPS, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
