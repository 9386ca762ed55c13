package run

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/zinojeng/video2summary/internal/db"
	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/fingerprint"
)

func setupTestStore(t *testing.T) (*db.DB, *Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return database, NewStore(database.Conn())
}

func testRun(videoPath string) *Run {
	return &Run{
		ID:          NewID(),
		VideoPath:   videoPath,
		OutputDir:   videoPath + "_slides",
		ParamsJSON:  `{"mode":"dedup"}`,
		Status:      StatusPending,
		TotalFrames: 9000,
		FPS:         29.97,
	}
}

func testRecord(frameIndex int, bits uint64) *detect.SlideRecord {
	return &detect.SlideRecord{
		FrameIndex: frameIndex,
		Timestamp:  float64(frameIndex) / 29.97,
		Fingerprint: fingerprint.Fingerprint{
			PHash:    fingerprint.NewHash(bits, 64),
			DHash:    fingerprint.NewHash(bits>>1, 64),
			MeanLuma: uint8(bits),
		},
		GroupID:       1,
		SubgroupIndex: 1,
		Sharpness:     33.5,
	}
}

func TestStore_CreateAndGetRun(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreateRun() should backfill CreatedAt")
	}

	got, err := store.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() = nil for existing run")
	}
	if got.VideoPath != r.VideoPath || got.Status != StatusPending || got.TotalFrames != 9000 {
		t.Errorf("GetRun() = %+v, want fields of %+v", got, r)
	}
	if got.FPS != 29.97 {
		t.Errorf("GetRun().FPS = %f, want 29.97", got.FPS)
	}
}

func TestStore_GetRun_Missing(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()

	got, err := store.GetRun(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun() = %+v, want nil", got)
	}
}

func TestStore_LatestRunForVideo(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	older := testRun("/videos/lecture.mp4")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	older.UpdatedAt = older.CreatedAt
	newer := testRun("/videos/lecture.mp4")
	unrelated := testRun("/videos/other.mp4")

	for _, r := range []*Run{older, newer, unrelated} {
		if err := store.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
	}

	got, err := store.LatestRunForVideo(ctx, "/videos/lecture.mp4")
	if err != nil {
		t.Fatalf("LatestRunForVideo() error = %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Errorf("LatestRunForVideo() = %v, want run %s", got, newer.ID)
	}

	got, err = store.LatestRunForVideo(ctx, "/videos/unknown.mp4")
	if err != nil {
		t.Fatalf("LatestRunForVideo() error = %v", err)
	}
	if got != nil {
		t.Errorf("LatestRunForVideo() = %+v for unknown video, want nil", got)
	}
}

func TestStore_UpdateStatusAndStage(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := store.UpdateRunStatus(ctx, r.ID, StatusFailed, "decode error"); err != nil {
		t.Fatalf("UpdateRunStatus() error = %v", err)
	}
	if err := store.UpdateRunStage(ctx, r.ID, detect.StagePrecise); err != nil {
		t.Fatalf("UpdateRunStage() error = %v", err)
	}

	got, err := store.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusFailed || got.Error != "decode error" || got.Stage != detect.StagePrecise {
		t.Errorf("run after updates = %+v", got)
	}
}

func TestStore_CandidatesRoundTrip(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	candidates := []int{45, 50, 55, 60}
	if err := store.SaveCandidates(ctx, r.ID, candidates); err != nil {
		t.Fatalf("SaveCandidates() error = %v", err)
	}
	// Saving again must replace, not conflict.
	if err := store.SaveCandidates(ctx, r.ID, candidates[:2]); err != nil {
		t.Fatalf("second SaveCandidates() error = %v", err)
	}

	got, err := store.LoadCandidates(ctx, r.ID)
	if err != nil {
		t.Fatalf("LoadCandidates() error = %v", err)
	}
	if !reflect.DeepEqual(got, candidates[:2]) {
		t.Errorf("LoadCandidates() = %v, want %v", got, candidates[:2])
	}
}

func TestStore_LoadCandidates_NoCheckpoint(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()

	got, err := store.LoadCandidates(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("LoadCandidates() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadCandidates() = %v, want nil", got)
	}
}

func TestStore_RecordsRoundTrip(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	records := []*detect.SlideRecord{
		testRecord(45, 0x1234567890abcdef),
		testRecord(300, 0xfedcba0987654321),
	}
	if err := store.SaveRecords(ctx, r.ID, records); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}

	got, err := store.LoadRecords(ctx, r.ID)
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadRecords() returned %d records, want 2", len(got))
	}
	for i, rec := range got {
		want := records[i]
		if rec.FrameIndex != want.FrameIndex ||
			rec.Fingerprint.PHash != want.Fingerprint.PHash ||
			rec.Fingerprint.DHash != want.Fingerprint.DHash ||
			rec.Fingerprint.MeanLuma != want.Fingerprint.MeanLuma ||
			rec.Sharpness != want.Sharpness {
			t.Errorf("record %d = %+v, want %+v", i, rec, want)
		}
	}
}

func TestStore_SaveRecordsPreservesEmittedFlags(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	records := []*detect.SlideRecord{testRecord(45, 0xff), testRecord(300, 0xff00)}
	if err := store.SaveRecords(ctx, r.ID, records); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}
	if err := store.MarkEmitted(ctx, r.ID, 45, "slide_001.jpg"); err != nil {
		t.Fatalf("MarkEmitted() error = %v", err)
	}

	// A later checkpoint rewrites the records; the emitted flag of
	// frame 45 must survive the rewrite.
	records = append(records, testRecord(600, 0xff0000))
	if err := store.SaveRecords(ctx, r.ID, records); err != nil {
		t.Fatalf("second SaveRecords() error = %v", err)
	}

	emitted, err := store.EmittedFiles(ctx, r.ID)
	if err != nil {
		t.Fatalf("EmittedFiles() error = %v", err)
	}
	want := map[int]string{45: "slide_001.jpg"}
	if !reflect.DeepEqual(emitted, want) {
		t.Errorf("EmittedFiles() = %v, want %v", emitted, want)
	}
}

func TestCheckpointer_BindsToRun(t *testing.T) {
	database, store := setupTestStore(t)
	defer database.Close()
	ctx := context.Background()

	r := testRun("/videos/lecture.mp4")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	var ckpt detect.Checkpointer = store.Checkpointer(r.ID)

	if err := ckpt.SaveCandidates(ctx, []int{10, 20}); err != nil {
		t.Fatalf("SaveCandidates() error = %v", err)
	}
	if err := ckpt.SaveRecords(ctx, []*detect.SlideRecord{testRecord(10, 0x1)}); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}
	if err := ckpt.StageComplete(ctx, detect.StageCoarse); err != nil {
		t.Fatalf("StageComplete() error = %v", err)
	}

	got, err := store.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Stage != detect.StageCoarse {
		t.Errorf("run stage = %s, want %s", got.Stage, detect.StageCoarse)
	}
}
