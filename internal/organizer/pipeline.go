package organizer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"forg/internal/model"
)

// PipelineState is one step of the organization run.
type PipelineState string

const (
	StateIdle                PipelineState = "idle"
	StateScanning            PipelineState = "scanning"
	StateClassifying         PipelineState = "classifying"
	StateMoving              PipelineState = "moving"
	StateDetectingDuplicates PipelineState = "detecting_duplicates"
	StateRemovingDuplicates  PipelineState = "removing_duplicates"
	StateDone                PipelineState = "done"
	StateFailed              PipelineState = "failed"
)

// RunResult reports the outcome of a pipeline run. A partially successful run
// ends in StateDone with a non-zero error count — partial success is not
// reported as total failure.
type RunResult struct {
	State             PipelineState
	SourceDir         string
	DestDir           string
	TotalFiles        int
	OrganizedFiles    int
	DuplicatesFound   int
	DuplicatesRemoved int
	Errors            int
	StartedAt         time.Time
	FinishedAt        time.Time
}

// PipelineOptions tunes a run.
type PipelineOptions struct {
	// Recursive scans subdirectories of the source.
	Recursive bool
	// DetectDuplicates runs duplicate detection and removal over the
	// destination after files are moved.
	DetectDuplicates bool
	// SimilarityThreshold applies to the near-duplicate pass over the
	// organized tree, in (0,1]. Zero disables the pass, leaving exact
	// detection only.
	SimilarityThreshold float64
	// Strategy picks which member of each duplicate group to keep.
	Strategy RetentionStrategy
}

// DefaultPipelineOptions are the options used when the caller passes zero values.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Recursive:           true,
		DetectDuplicates:    true,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Strategy:            KeepNewest,
	}
}

// Pipeline is the top-level orchestration: scan, classify, move into category
// directories, then detect and remove duplicates in the result. Detection runs
// in two passes: exact groups first, then a near-duplicate scan over the
// survivors at the configured similarity threshold.
//
// States advance Idle → Scanning → Classifying → Moving → DetectingDuplicates
// → RemovingDuplicates → Done. Failed absorbs run-level errors (source
// missing, destination uncreatable); per-file errors only increment the error
// counter and skip the file.
//
// A Pipeline runs once; create a new one per run.
type Pipeline struct {
	fsmgr      FilesystemManager
	classifier *Classifier
	detector   *DuplicateDetector
	audit      AuditLog
	clock      Clock
	logger     Logger
	state      PipelineState
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(fsmgr FilesystemManager, classifier *Classifier, detector *DuplicateDetector, audit AuditLog, clock Clock, logger Logger) *Pipeline {
	return &Pipeline{
		fsmgr:      fsmgr,
		classifier: classifier,
		detector:   detector,
		audit:      audit,
		clock:      clock,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() PipelineState {
	return p.state
}

func (p *Pipeline) setState(state PipelineState) {
	p.logger.Debug("pipeline state change", "from", string(p.state), "to", string(state))
	p.state = state
}

// fail transitions to Failed and wraps the run-level cause.
func (p *Pipeline) fail(result *RunResult, cause error) (*RunResult, error) {
	p.setState(StateFailed)
	result.State = StateFailed
	result.FinishedAt = p.clock.Now()
	return result, cause
}

// Run executes the full pipeline over sourceDir, organizing into destDir.
func (p *Pipeline) Run(ctx context.Context, sourceDir, destDir string, opts PipelineOptions) (*RunResult, error) {
	if opts == (PipelineOptions{}) {
		opts = DefaultPipelineOptions()
	}
	if opts.Strategy == "" {
		opts.Strategy = KeepNewest
	}

	result := &RunResult{
		State:     p.state,
		SourceDir: sourceDir,
		DestDir:   destDir,
		StartedAt: p.clock.Now(),
	}

	// Scanning: a missing source or an uncreatable destination invalidates
	// the whole run.
	p.setState(StateScanning)
	source, err := p.fsmgr.Resolve(sourceDir)
	if err != nil {
		return p.fail(result, fmt.Errorf("resolving source directory: %w", err))
	}
	if !source.IsDir() {
		return p.fail(result, fmt.Errorf("source is not a directory: %s", sourceDir))
	}
	if err := p.fsmgr.CreateDirectory(destDir); err != nil {
		return p.fail(result, fmt.Errorf("creating destination directory: %w", err))
	}

	files, err := p.fsmgr.FindFiles(source, opts.Recursive)
	if err != nil {
		return p.fail(result, fmt.Errorf("scanning source directory: %w", err))
	}
	result.TotalFiles = len(files)
	p.logger.Info("scan complete", "source", sourceDir, "files", len(files))

	// Classifying: per-file failures are audited by the classifier and the
	// file is skipped.
	p.setState(StateClassifying)
	type classified struct {
		path *Path
		cls  model.Classification
	}
	plan := make([]classified, 0, len(files))
	for _, f := range files {
		cls, err := p.classifier.Classify(ctx, f)
		if err != nil {
			result.Errors++
			continue
		}
		plan = append(plan, classified{path: f, cls: cls})
	}

	// Moving: each file lands in a category directory; collisions rename
	// rather than overwrite.
	p.setState(StateMoving)
	for _, item := range plan {
		categoryDir := filepath.Join(destDir, string(item.cls.Category))
		if err := p.fsmgr.CreateDirectory(categoryDir); err != nil {
			return p.fail(result, fmt.Errorf("creating category directory: %w", err))
		}

		dst := filepath.Join(categoryDir, filepath.Base(item.path.String()))
		finalDst, err := p.fsmgr.MoveFile(item.path, dst)
		if err != nil {
			result.Errors++
			p.recordMove(item.path.String(), dst, model.StatusFailure, err.Error())
			continue
		}
		result.OrganizedFiles++
		p.recordMove(item.path.String(), finalDst, model.StatusSuccess,
			fmt.Sprintf("category=%s confidence=%.2f method=%s", item.cls.Category, item.cls.Confidence, item.cls.Method))
	}

	if opts.DetectDuplicates {
		// DetectingDuplicates: rescan the organized tree so collision-renamed
		// files are included under their final names.
		p.setState(StateDetectingDuplicates)
		dest, err := p.fsmgr.Resolve(destDir)
		if err != nil {
			return p.fail(result, fmt.Errorf("resolving destination directory: %w", err))
		}
		organized, err := p.fsmgr.FindFiles(dest, true)
		if err != nil {
			return p.fail(result, fmt.Errorf("scanning destination directory: %w", err))
		}

		groups, err := p.detector.FindExactDuplicates(organized)
		if err != nil {
			return p.fail(result, fmt.Errorf("finding exact duplicates: %w", err))
		}
		for _, g := range groups {
			result.DuplicatesFound += len(g.Members) - 1
		}

		p.setState(StateRemovingDuplicates)
		removed, err := p.detector.RemoveDuplicates(groups, opts.Strategy)
		if err != nil {
			return p.fail(result, fmt.Errorf("removing duplicates: %w", err))
		}
		result.DuplicatesRemoved = len(removed)

		// Near-duplicate pass over the survivors. Exact removal already
		// collapsed identical content, so anything left that matches is a
		// similarity match.
		if opts.SimilarityThreshold > 0 {
			remaining, err := p.fsmgr.FindFiles(dest, true)
			if err != nil {
				return p.fail(result, fmt.Errorf("rescanning destination directory: %w", err))
			}
			pairs, err := p.detector.FindSimilarPairs(ctx, remaining, opts.SimilarityThreshold)
			if err != nil {
				return p.fail(result, fmt.Errorf("finding similar files: %w", err))
			}
			simGroups := p.detector.GroupSimilar(pairs, p.detector.RecordAll(remaining))
			for _, g := range simGroups {
				result.DuplicatesFound += len(g.Members) - 1
			}
			simRemoved, err := p.detector.RemoveDuplicates(simGroups, opts.Strategy)
			if err != nil {
				return p.fail(result, fmt.Errorf("removing similar files: %w", err))
			}
			result.DuplicatesRemoved += len(simRemoved)
		}
	}

	p.setState(StateDone)
	result.State = StateDone
	result.FinishedAt = p.clock.Now()
	p.logger.Info("pipeline complete",
		"total", result.TotalFiles,
		"organized", result.OrganizedFiles,
		"duplicates_found", result.DuplicatesFound,
		"duplicates_removed", result.DuplicatesRemoved,
		"errors", result.Errors)
	return result, nil
}

func (p *Pipeline) recordMove(src, dst string, status model.OperationStatus, details string) {
	if err := AppendOperation(p.audit, p.clock, model.OpFileOrganization, src, dst, status, details); err != nil {
		p.logger.Warn("recording file organization", "path", src, "error", err)
	}
}
