package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zinojeng/video2summary/internal/api"
	"github.com/zinojeng/video2summary/internal/config"
	"github.com/zinojeng/video2summary/internal/db"
	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/emit"
	"github.com/zinojeng/video2summary/internal/logging"
	"github.com/zinojeng/video2summary/internal/run"
	"github.com/zinojeng/video2summary/internal/video"
)

const usage = `slidecap extracts the distinct slides from a presentation recording.

Usage:
  slidecap detect <video> [flags]   run the detection pipeline
  slidecap probe <video>            print video metadata as JSON
  slidecap renumber <dir>           re-sequence an output dir after manual deletions
  slidecap prune <dir>              remove near-duplicate captures from an output dir
  slidecap serve                    expose stored runs over a local HTTP API
  slidecap version                  print build information

Run "slidecap <command> -h" for command flags.
`

func main() {
	if err := dispatch(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func dispatch() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "detect":
		return detectCmd(ctx, os.Args[2:])
	case "probe":
		return probeCmd(ctx, os.Args[2:])
	case "renumber":
		return renumberCmd(os.Args[2:])
	case "prune":
		return pruneCmd(os.Args[2:])
	case "serve":
		return serveCmd(ctx)
	case "version":
		fmt.Printf("slidecap %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
		return nil
	case "-h", "--help", "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
		return nil
	}
}

func detectCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	outDir := fs.String("o", "", "output directory (default <video name>_slides)")
	paramsFile := fs.String("config", "", "YAML parameter file")
	similarity := fs.Float64("similarity", 0, "SSIM boundary threshold (0 keeps default)")
	grouping := fs.Float64("grouping", 0, "pHash grouping threshold (0 keeps default)")
	minInterval := fs.Duration("min-interval", 0, "minimum dwell between slide boundaries (0 keeps default)")
	step := fs.Int("step", 0, "coarse scan stride in frames (0 selects adaptive)")
	mode := fs.String("mode", "", "dedup or animation (empty keeps default)")
	resume := fs.Bool("resume", false, "resume the latest interrupted run for this video")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("detect: exactly one video path required")
	}

	videoPath, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to resolve video path: %w", err)
	}
	if *outDir == "" {
		base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
		*outDir = filepath.Join(filepath.Dir(videoPath), base+"_slides")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting slide detection",
		"version", config.Version,
		"video", logging.SanitizePath(videoPath),
		"output_dir", logging.SanitizePath(*outDir),
	)

	params := detect.DefaultParams()
	if cfg.Workers() > 0 {
		params.Workers = cfg.Workers()
	}
	if *paramsFile != "" {
		params, err = config.ApplyParamsFile(*paramsFile, params)
		if err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "similarity":
			params.SimilarityThreshold = *similarity
		case "grouping":
			params.GroupThreshold = *grouping
		case "min-interval":
			params.MinSlideInterval = *minInterval
		case "step":
			params.CoarseStepOverride = *step
		case "mode":
			params.Mode = *mode
		}
	})
	if err := params.Validate(); err != nil {
		return err
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	store := run.NewStore(database.Conn())

	src, err := video.OpenFFmpeg(videoPath, cfg.FFmpegPath(), logger)
	if err != nil {
		return err
	}
	defer src.Close()

	runID, resumeState, emittedFiles, err := prepareRun(ctx, store, params, src.Info(), videoPath, *outDir, *resume, logger)
	if err != nil {
		return err
	}
	logger = logging.WithRunID(logger, runID)

	if err := store.UpdateRunStatus(ctx, runID, run.StatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	session, selected, meta, runErr := runDetection(ctx, src, store, runID, params, resumeState, emittedFiles, *outDir, logger)
	if runErr != nil {
		status := run.StatusFailed
		if errors.Is(runErr, context.Canceled) {
			status = run.StatusInterrupted
		}
		if uerr := store.UpdateRunStatus(context.Background(), runID, status, runErr.Error()); uerr != nil {
			logger.Error("failed to record run failure", "error", uerr)
		}
		return runErr
	}

	if err := store.UpdateRunStage(ctx, runID, detect.StageDone); err != nil {
		logger.Error("failed to record final stage", "error", err)
	}
	if err := store.UpdateRunStatus(ctx, runID, run.StatusCompleted, ""); err != nil {
		logger.Error("failed to record run completion", "error", err)
	}

	logger.Info("detection complete",
		"slides", len(meta.Slides),
		"groups", len(session.Groups),
		"records", len(session.Records),
		"selected", len(selected),
	)
	fmt.Printf("captured %d slides (%d groups) into %s\n", len(meta.Slides), len(session.Groups), *outDir)
	return nil
}

// prepareRun either creates a fresh run row or, with resume requested,
// reattaches to the most recent unfinished run for this video and loads
// its checkpoints.
func prepareRun(ctx context.Context, store *run.Store, params detect.Params, info video.Info, videoPath, outDir string, resume bool, logger *slog.Logger) (string, *detect.Resume, map[int]string, error) {
	if resume {
		prev, err := store.LatestRunForVideo(ctx, videoPath)
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to look up previous run: %w", err)
		}
		if prev != nil && prev.Status != run.StatusCompleted {
			candidates, err := store.LoadCandidates(ctx, prev.ID)
			if err != nil {
				return "", nil, nil, fmt.Errorf("failed to load checkpointed candidates: %w", err)
			}
			records, err := store.LoadRecords(ctx, prev.ID)
			if err != nil {
				return "", nil, nil, fmt.Errorf("failed to load checkpointed records: %w", err)
			}
			emitted, err := store.EmittedFiles(ctx, prev.ID)
			if err != nil {
				return "", nil, nil, fmt.Errorf("failed to load emitted files: %w", err)
			}
			logger.Info("resuming run",
				"run_id", prev.ID,
				"stage", prev.Stage,
				"candidates", len(candidates),
				"records", len(records),
				"emitted", len(emitted),
			)
			return prev.ID, &detect.Resume{Stage: prev.Stage, Candidates: candidates, Records: records}, emitted, nil
		}
		logger.Info("no resumable run found, starting fresh")
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to encode params: %w", err)
	}
	r := &run.Run{
		ID:          run.NewID(),
		VideoPath:   videoPath,
		OutputDir:   outDir,
		ParamsJSON:  string(paramsJSON),
		Status:      run.StatusPending,
		TotalFrames: info.TotalFrames,
		FPS:         info.FPS,
	}
	if err := store.CreateRun(ctx, r); err != nil {
		return "", nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	return r.ID, nil, nil, nil
}

func runDetection(ctx context.Context, src video.Source, store *run.Store, runID string, params detect.Params, resume *detect.Resume, emittedFiles map[int]string, outDir string, logger *slog.Logger) (*detect.Session, []*detect.SlideRecord, emit.Metadata, error) {
	pipeline := detect.NewPipeline(src, params, store.Checkpointer(runID), logger)
	session, err := pipeline.Run(ctx, resume)
	if err != nil {
		return nil, nil, emit.Metadata{}, err
	}

	selected := detect.SelectRepresentatives(session.Groups, params.Mode)

	if err := store.UpdateRunStage(ctx, runID, detect.StageEmit); err != nil {
		return nil, nil, emit.Metadata{}, fmt.Errorf("failed to record emit stage: %w", err)
	}

	emitter := emit.NewEmitter(src, outDir, logger)
	emitter.AlreadyEmitted = emittedFiles
	emitter.Emitted = func(ctx context.Context, frameIndex int, filename string) error {
		return store.MarkEmitted(ctx, runID, frameIndex, filename)
	}
	meta, err := emitter.Emit(ctx, session, selected)
	if err != nil {
		return nil, nil, emit.Metadata{}, err
	}
	return session, selected, meta, nil
}

func probeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("probe: exactly one video path required")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	src, err := video.OpenFFmpeg(fs.Arg(0), cfg.FFmpegPath(), logger)
	if err != nil {
		return err
	}
	defer src.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(src.Info())
}

func renumberCmd(args []string) error {
	fs := flag.NewFlagSet("renumber", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("renumber: exactly one output directory required")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	meta, err := emit.Renumber(fs.Arg(0), logger)
	if err != nil {
		return err
	}
	fmt.Printf("renumbered %d slides\n", len(meta.Slides))
	return nil
}

func pruneCmd(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("prune: exactly one output directory required")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel())

	removed, err := emit.PruneDuplicates(fs.Arg(0), logger)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d near-duplicate slides\n", removed)
	return nil
}

func serveCmd(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	server := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Store:     run.NewStore(database.Conn()),
		Logger:    logger,
		StartTime: time.Now(),
		Version:   config.Version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
