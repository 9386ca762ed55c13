package detect

import (
	"context"
	"log/slog"

	"github.com/zinojeng/video2summary/internal/video"
)

// Checkpointer persists pipeline progress so a multi-hour scan can
// resume without re-decoding already-processed frames. Implementations
// are bound to one run. A nil Checkpointer disables checkpointing.
type Checkpointer interface {
	// StageComplete records that a stage finished.
	StageComplete(ctx context.Context, stage string) error
	// SaveCandidates persists the coarse scan output.
	SaveCandidates(ctx context.Context, candidates []int) error
	// SaveRecords persists the current accepted record list.
	SaveRecords(ctx context.Context, records []*SlideRecord) error
}

// Resume carries the checkpoint state of an interrupted run. Stage is
// the last stage that completed.
type Resume struct {
	Stage      string
	Candidates []int
	Records    []*SlideRecord
}

// stageRank orders stages for resume comparisons.
func stageRank(stage string) int {
	switch stage {
	case StageCoarse:
		return 1
	case StagePrecise:
		return 2
	case StageGapFill:
		return 3
	case StageGroup:
		return 4
	case StageEmit:
		return 5
	case StageDone:
		return 6
	default:
		return 0
	}
}

// Pipeline wires the detection stages together over one frame source
// and one session.
type Pipeline struct {
	src    video.Source
	params Params
	ckpt   Checkpointer
	logger *slog.Logger
}

func NewPipeline(src video.Source, params Params, ckpt Checkpointer, logger *slog.Logger) *Pipeline {
	return &Pipeline{src: src, params: params, ckpt: ckpt, logger: logger}
}

// Run executes coarse scan, precise detection, gap filling and grouping
// in order, checkpointing after each stage. A non-nil resume skips the
// stages it already covers. The returned session holds the grouped
// record set, ready for selection and emission. A video with no
// detected changes is not an error: the session simply has no records.
func (p *Pipeline) Run(ctx context.Context, resume *Resume) (*Session, error) {
	session, err := NewSession(p.params, p.src.Info())
	if err != nil {
		return nil, err
	}

	done := 0
	if resume != nil {
		done = stageRank(resume.Stage)
		session.Candidates = resume.Candidates
		session.Records = resume.Records
		if done > 0 {
			p.logger.Info("resuming pipeline", "after_stage", resume.Stage,
				"candidates", len(session.Candidates), "records", len(session.Records))
		}
	}

	if done < stageRank(StageCoarse) {
		candidates, err := NewCoarseScanner(p.src, p.params, p.logger).Scan(ctx)
		if err != nil {
			return nil, err
		}
		session.Candidates = candidates
		if err := p.checkpointCandidates(ctx, session); err != nil {
			return nil, err
		}
	}

	if done < stageRank(StagePrecise) {
		records, err := NewPreciseDetector(p.src, p.params, p.logger).Detect(ctx, session.Candidates)
		if err != nil {
			return nil, err
		}
		session.Records = records
		if err := p.checkpointRecords(ctx, session, StagePrecise); err != nil {
			return nil, err
		}
	}

	if done < stageRank(StageGapFill) {
		records, err := NewGapFiller(p.src, p.params, p.logger).Fill(ctx, session.Records)
		if err != nil {
			return nil, err
		}
		session.Records = records
		if err := p.checkpointRecords(ctx, session, StageGapFill); err != nil {
			return nil, err
		}
	}

	// Grouping is cheap and deterministic; always rerun it so resumed
	// runs never depend on partially-persisted group state.
	groups, err := GroupRecords(session.Records, p.params.GroupThreshold)
	if err != nil {
		return nil, err
	}
	session.Groups = groups
	if err := p.checkpointRecords(ctx, session, StageGroup); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline complete",
		"records", len(session.Records), "groups", len(session.Groups))
	return session, nil
}

func (p *Pipeline) checkpointCandidates(ctx context.Context, session *Session) error {
	if p.ckpt == nil {
		return nil
	}
	if err := p.ckpt.SaveCandidates(ctx, session.Candidates); err != nil {
		return err
	}
	return p.ckpt.StageComplete(ctx, StageCoarse)
}

func (p *Pipeline) checkpointRecords(ctx context.Context, session *Session, stage string) error {
	if p.ckpt == nil {
		return nil
	}
	if err := p.ckpt.SaveRecords(ctx, session.Records); err != nil {
		return err
	}
	return p.ckpt.StageComplete(ctx, stage)
}
