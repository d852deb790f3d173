package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"forg/internal/audit"
	"forg/internal/config"
	"forg/internal/embed"
	"forg/internal/encryption"
	"forg/internal/fs"
	"forg/internal/model"
	"forg/internal/organizer"
	"forg/internal/vault"
)

// App is the application layer between the CLI and the organizer core.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the audit log lifecycle on Close.
type App struct {
	cfg        *config.Config
	auditLog   organizer.AuditLog
	fsmgr      *fs.OSFilesystemManager
	vault      organizer.ArchiveVault
	encryptor  organizer.Encryptor
	trained    *organizer.TrainedInference
	classifier *organizer.Classifier
	detector   *organizer.DuplicateDetector
	pipeline   *organizer.Pipeline
	run        *Run
	logFile    *os.File
}

// NewApp creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "organize", "duplicates").
// The caller must call Close when done.
func NewApp(cfg *config.Config, command string) (*App, error) {
	run := NewRun(command)

	logger, logFile, err := newLogger(cfg.LogDir, run.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	auditLog, err := audit.NewLogFromConfig(cfg.Audit)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating audit log: %w", err)
	}

	embedder, err := embed.NewEmbedderFromConfig(cfg.Embedding)
	if err != nil {
		auditLog.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Archive)
	if err != nil {
		auditLog.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		auditLog.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	clock := organizer.RealClock{}
	hashes := organizer.NewHashStore(fsmgr)
	sim := organizer.NewSimilarityEngine(fsmgr, fsmgr, hashes, embedder, log)

	// The trained text model replaces the fixed heuristic when a saved model
	// exists; otherwise it delegates to the heuristic untouched.
	trained := organizer.NewTrainedInference(fsmgr, &organizer.HeuristicInference{}, auditLog, clock, log)
	if cfg.Classifier.ModelPath != "" {
		if _, err := os.Stat(cfg.Classifier.ModelPath); err == nil {
			if err := trained.LoadModel(cfg.Classifier.ModelPath); err != nil {
				log.Warn("loading text classifier model", "path", cfg.Classifier.ModelPath, "error", err)
			}
		}
	}

	classifier := organizer.NewClassifier(fsmgr, trained, auditLog, clock, log)
	detector := organizer.NewDuplicateDetector(hashes, sim, classifier, fsmgr, v, enc, auditLog, clock, log, cfg.Organize.Workers)
	pipeline := organizer.NewPipeline(fsmgr, classifier, detector, auditLog, clock, log)

	return &App{
		cfg:        cfg,
		auditLog:   auditLog,
		fsmgr:      fsmgr,
		vault:      v,
		encryptor:  enc,
		trained:    trained,
		classifier: classifier,
		detector:   detector,
		pipeline:   pipeline,
		run:        run,
		logFile:    logFile,
	}, nil
}

// OrganizeOptions returns the pipeline options from the [organize] section of
// the config. Callers override individual fields from CLI flags.
func (a *App) OrganizeOptions() organizer.PipelineOptions {
	return pipelineOptionsFromConfig(a.cfg.Organize)
}

func pipelineOptionsFromConfig(cfg config.OrganizeConfig) organizer.PipelineOptions {
	opts := organizer.PipelineOptions{
		Recursive:           cfg.Recursive,
		DetectDuplicates:    cfg.DetectDuplicates,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Strategy:            organizer.RetentionStrategy(cfg.Strategy),
	}
	if opts.Strategy == "" {
		opts.Strategy = organizer.KeepNewest
	}
	return opts
}

// Organize runs the full pipeline: scan sourceDir, classify, move files into
// category directories under destDir, then optionally detect and remove
// duplicates in the result. Zero-value opts fall back to the config's
// [organize] section.
func (a *App) Organize(ctx context.Context, sourceDir, destDir string, opts organizer.PipelineOptions) (*organizer.RunResult, error) {
	if opts == (organizer.PipelineOptions{}) {
		opts = a.OrganizeOptions()
	}
	return a.pipeline.Run(ctx, sourceDir, destDir, opts)
}

// Classify determines the category of a single file.
func (a *App) Classify(ctx context.Context, rawPath string) (model.Classification, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return model.Classification{}, fmt.Errorf("resolving path: %w", err)
	}
	return a.classifier.Classify(ctx, p)
}

// scan resolves a directory and discovers its files.
func (a *App) scan(rawDir string, recursive bool) ([]*organizer.Path, error) {
	dir, err := a.fsmgr.Resolve(rawDir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	files, err := a.fsmgr.FindFiles(dir, recursive)
	if err != nil {
		return nil, fmt.Errorf("scanning directory: %w", err)
	}
	return files, nil
}

// FindDuplicates returns groups of byte-identical files under rawDir.
func (a *App) FindDuplicates(rawDir string, recursive bool) ([]model.DuplicateGroup, error) {
	files, err := a.scan(rawDir, recursive)
	if err != nil {
		return nil, err
	}
	return a.detector.FindExactDuplicates(files)
}

// FindSimilar returns pairs of near-duplicate files under rawDir scored at or
// above threshold, plus the transitive groups they form.
func (a *App) FindSimilar(ctx context.Context, rawDir string, threshold float64, recursive bool) ([]model.SimilarPair, []model.DuplicateGroup, error) {
	files, err := a.scan(rawDir, recursive)
	if err != nil {
		return nil, nil, err
	}

	pairs, err := a.detector.FindSimilarPairs(ctx, files, threshold)
	if err != nil {
		return nil, nil, err
	}

	records := a.detector.RecordAll(files)
	groups := a.detector.GroupSimilar(pairs, records)
	return pairs, groups, nil
}

// RemoveDuplicates finds exact duplicate groups under rawDir and removes all
// but one member per group according to the retention strategy. Returns the
// removed paths.
func (a *App) RemoveDuplicates(rawDir string, recursive bool, strategy organizer.RetentionStrategy) ([]string, error) {
	files, err := a.scan(rawDir, recursive)
	if err != nil {
		return nil, err
	}
	groups, err := a.detector.FindExactDuplicates(files)
	if err != nil {
		return nil, err
	}
	return a.detector.RemoveDuplicates(groups, strategy)
}

// AnalyzeDuplicates summarizes exact duplicate groups under rawDir:
// group count, duplicate count, reclaimable space, category breakdown.
func (a *App) AnalyzeDuplicates(ctx context.Context, rawDir string, recursive bool) (model.DuplicateStats, error) {
	files, err := a.scan(rawDir, recursive)
	if err != nil {
		return model.DuplicateStats{}, err
	}
	groups, err := a.detector.FindExactDuplicates(files)
	if err != nil {
		return model.DuplicateStats{}, err
	}
	return a.detector.Analyze(ctx, groups)
}

// Train fits the text classifier on a labeled directory: each immediate
// subdirectory of rawDir names a category, and every text file inside it is a
// training sample. The trained model is saved to the configured model path.
func (a *App) Train(rawDir string) (int, error) {
	dir, err := a.fsmgr.Resolve(rawDir)
	if err != nil {
		return 0, fmt.Errorf("resolving training directory: %w", err)
	}
	if !dir.IsDir() {
		return 0, fmt.Errorf("training path is not a directory: %s", rawDir)
	}

	entries, err := os.ReadDir(dir.String())
	if err != nil {
		return 0, fmt.Errorf("reading training directory: %w", err)
	}

	var samples []organizer.TrainingSample
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		category := model.Category(entry.Name())

		labelDir, err := a.fsmgr.Resolve(filepath.Join(dir.String(), entry.Name()))
		if err != nil {
			continue
		}
		files, err := a.fsmgr.FindFiles(labelDir, true)
		if err != nil {
			continue
		}
		for _, f := range files {
			r, err := a.fsmgr.Open(f)
			if err != nil {
				continue
			}
			content, err := io.ReadAll(r)
			r.Close()
			if err != nil {
				continue
			}
			samples = append(samples, organizer.TrainingSample{
				Content:  string(content),
				Category: category,
			})
		}
	}

	if err := a.trained.Train(samples); err != nil {
		return 0, err
	}
	if a.cfg.Classifier.ModelPath != "" {
		if err := a.trained.SaveModel(a.cfg.Classifier.ModelPath); err != nil {
			return len(samples), err
		}
	}
	return len(samples), nil
}

// SetupEncryption generates the archive encryption key pair, storing the
// public key in plaintext and the private key encrypted with the passphrase.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// Restore writes archived content identified by checksum to w. When an
// encryptor is configured the content was archived encrypted, and passphrase
// is required to unlock the private key for the session.
func (a *App) Restore(checksum string, passphrase string, w io.Writer) error {
	if a.vault == nil {
		return fmt.Errorf("no archive vault configured")
	}

	if a.encryptor == nil || !a.encryptor.IsConfigured() {
		return a.vault.GetContent(checksum, w)
	}

	dctx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.vault.GetContent(checksum, pw))
	}()
	defer pr.Close()

	if err := dctx.Decrypt(pr, w); err != nil {
		return fmt.Errorf("decrypting content: %w", err)
	}
	return nil
}

// History returns the most recent audit log entries, newest first.
func (a *App) History(limit int) ([]model.OperationLogEntry, error) {
	return a.auditLog.History(limit)
}

// Report aggregates audit operations by type and status within the optional
// time window. Nil bounds mean unbounded on that side.
func (a *App) Report(start, end *time.Time) (*model.Report, error) {
	return a.auditLog.Report(start, end)
}

// Close closes the audit log and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.auditLog.Close(); err != nil {
		firstErr = fmt.Errorf("closing audit log: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}
