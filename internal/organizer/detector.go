package organizer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"forg/internal/model"
)

// DefaultSimilarityThreshold is the cosine score at or above which two text
// signatures are considered near duplicates.
const DefaultSimilarityThreshold = 0.95

// DuplicateDetector finds exact and near duplicates across a file set and
// applies a retention policy to duplicate groups.
//
// Pairwise similarity is O(n²) over the input list. That is acceptable for a
// single directory tree, which is the target scale; it is a real limit for
// anything larger. The scan is exact: no approximate index, so which pairs are
// reported depends only on the inputs and the threshold.
type DuplicateDetector struct {
	hashes     *HashStore
	sim        *SimilarityEngine
	classifier *Classifier
	fsmgr      FilesystemManager
	vault      ArchiveVault // optional: archives content before deletion
	encryptor  Encryptor    // optional: encrypts archived content
	audit      AuditLog
	clock      Clock
	logger     Logger
	workers    int
}

// NewDuplicateDetector creates a detector. vault and encryptor may be nil;
// without a vault removed duplicates are deleted outright. workers bounds the
// parallelism of hashing and pair scoring; values < 1 mean single-threaded.
func NewDuplicateDetector(hashes *HashStore, sim *SimilarityEngine, classifier *Classifier, fsmgr FilesystemManager, vault ArchiveVault, encryptor Encryptor, audit AuditLog, clock Clock, logger Logger, workers int) *DuplicateDetector {
	if workers < 1 {
		workers = 1
	}
	return &DuplicateDetector{
		hashes:     hashes,
		sim:        sim,
		classifier: classifier,
		fsmgr:      fsmgr,
		vault:      vault,
		encryptor:  encryptor,
		audit:      audit,
		clock:      clock,
		logger:     logger,
		workers:    workers,
	}
}

// record builds a FileRecord for a path, including its content hash.
func (d *DuplicateDetector) record(path *Path) (model.FileRecord, error) {
	info := path.Info()

	mimeType, err := d.sim.mime.DetectMimeType(path)
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("detecting mime type: %w", err)
	}

	hash, err := d.hashes.Hash(path)
	if err != nil {
		return model.FileRecord{}, err
	}

	return model.FileRecord{
		Path:       path.String(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		CreatedAt:  info.ModTime(), // birth time is not portably available; mtime is the stand-in
		MimeType:   mimeType,
		Hash:       hash,
	}, nil
}

// FindExactDuplicates hashes every path and groups identical digests.
// Only groups with at least two members are returned, in first-seen hash
// order. Files that cannot be hashed are recorded as hash_calculation
// failures and excluded: they neither match nor block other matches.
// Successful hashes also record a metadata snapshot for the path.
func (d *DuplicateDetector) FindExactDuplicates(paths []*Path) ([]model.DuplicateGroup, error) {
	records := d.hashAll(paths)

	byHash := make(map[string][]model.FileRecord)
	var hashOrder []string
	for _, rec := range records {
		if _, seen := byHash[rec.Hash]; !seen {
			hashOrder = append(hashOrder, rec.Hash)
		}
		byHash[rec.Hash] = append(byHash[rec.Hash], rec)
	}

	var groups []model.DuplicateGroup
	for _, hash := range hashOrder {
		members := byHash[hash]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, model.DuplicateGroup{
			Hash:    hash,
			Method:  model.GroupExact,
			Members: members,
		})
	}
	return groups, nil
}

// hashAll builds file records for all paths on a worker pool, preserving
// input order in the result. Failed paths are audited and dropped.
func (d *DuplicateDetector) hashAll(paths []*Path) []model.FileRecord {
	results := make([]*model.FileRecord, len(paths))

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				rec, err := d.record(paths[i])
				if err != nil {
					d.recordHashFailure(paths[i].String(), err)
					continue
				}
				results[i] = &rec
			}
		}()
	}
	for i := range paths {
		work <- i
	}
	close(work)
	wg.Wait()

	records := make([]model.FileRecord, 0, len(paths))
	for _, rec := range results {
		if rec == nil {
			continue
		}
		records = append(records, *rec)
		d.recordSnapshot(*rec)
	}
	return records
}

func (d *DuplicateDetector) recordHashFailure(path string, cause error) {
	d.logger.Warn("hashing failed", "path", path, "error", cause)
	if err := AppendOperation(d.audit, d.clock, model.OpHashCalculation, path, "", model.StatusFailure, cause.Error()); err != nil {
		d.logger.Warn("recording hash failure", "path", path, "error", err)
	}
}

func (d *DuplicateDetector) recordSnapshot(rec model.FileRecord) {
	err := d.audit.RecordMetadata(model.FileMetadataSnapshot{
		Path:       rec.Path,
		Hash:       rec.Hash,
		MimeType:   rec.MimeType,
		Size:       rec.Size,
		ModifiedAt: rec.ModifiedAt,
		CreatedAt:  rec.CreatedAt,
	})
	if err != nil {
		d.logger.Warn("recording metadata snapshot", "path", rec.Path, "error", err)
	}
}

// RecordAll builds file records for the given paths, keyed by path string.
// Unreadable paths are audited and omitted, matching FindExactDuplicates.
func (d *DuplicateDetector) RecordAll(paths []*Path) map[string]model.FileRecord {
	records := d.hashAll(paths)
	byPath := make(map[string]model.FileRecord, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}
	return byPath
}

// signatureAt pairs a path index with its computed signature.
type signatureAt struct {
	index int
	sig   Signature
}

// FindSimilarPairs scores every unordered pair of paths with compatible
// signature kinds and returns those at or above threshold, in the order of
// the i < j nested scan over the input list. The ordering is stable given a
// stable input ordering; callers that depend on it should sort paths first.
//
// Files without a signature (unreadable, vanished) are excluded from all
// comparison — absence is not a zero score.
func (d *DuplicateDetector) FindSimilarPairs(ctx context.Context, paths []*Path, threshold float64) ([]model.SimilarPair, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidArgument, threshold)
	}

	// Signatures first, one per readable file.
	var sigs []signatureAt
	for i, path := range paths {
		sig, err := d.sim.Signature(ctx, path)
		if err != nil {
			d.recordHashFailure(path.String(), err)
			continue
		}
		sigs = append(sigs, signatureAt{index: i, sig: sig})
	}

	// Enumerate compatible pairs in scan order, then score them in parallel.
	type pairAt struct {
		a, b int // indexes into sigs
	}
	var pairs []pairAt
	for a := 0; a < len(sigs); a++ {
		for b := a + 1; b < len(sigs); b++ {
			if CompatibleKinds(sigs[a].sig, sigs[b].sig) {
				pairs = append(pairs, pairAt{a: a, b: b})
			}
		}
	}

	scores := make([]float64, len(pairs))
	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				scores[i] = d.sim.Similarity(sigs[pairs[i].a].sig, sigs[pairs[i].b].sig)
			}
		}()
	}
	for i := range pairs {
		work <- i
	}
	close(work)
	wg.Wait()

	// pairs is already in scan order; filtering preserves it.
	var matches []model.SimilarPair
	for i, p := range pairs {
		if scores[i] >= threshold {
			matches = append(matches, model.SimilarPair{
				PathA: paths[sigs[p.a].index].String(),
				PathB: paths[sigs[p.b].index].String(),
				Score: scores[i],
			})
		}
	}
	return matches, nil
}

// GroupSimilar folds similar pairs into duplicate groups: paths connected by
// one or more matching pairs (transitively) form one group. Member order
// follows first appearance in the pair list.
func (d *DuplicateDetector) GroupSimilar(pairs []model.SimilarPair, records map[string]model.FileRecord) []model.DuplicateGroup {
	parent := make(map[string]string)
	var find func(string) string
	find = func(p string) string {
		if parent[p] != p {
			parent[p] = find(parent[p])
		}
		return parent[p]
	}
	union := func(a, b string) {
		parent[find(a)] = find(b)
	}

	var order []string
	seen := make(map[string]bool)
	note := func(p string) {
		if !seen[p] {
			seen[p] = true
			parent[p] = p
			order = append(order, p)
		}
	}
	for _, pair := range pairs {
		note(pair.PathA)
		note(pair.PathB)
		union(pair.PathA, pair.PathB)
	}

	memberLists := make(map[string][]model.FileRecord)
	var rootOrder []string
	for _, p := range order {
		root := find(p)
		if _, ok := memberLists[root]; !ok {
			rootOrder = append(rootOrder, root)
		}
		rec, ok := records[p]
		if !ok {
			rec = model.FileRecord{Path: p}
		}
		memberLists[root] = append(memberLists[root], rec)
	}

	var groups []model.DuplicateGroup
	for _, root := range rootOrder {
		members := memberLists[root]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, model.DuplicateGroup{
			Method:  model.GroupSimilar,
			Members: members,
		})
	}
	return groups
}

// RetentionStrategy selects which member of a duplicate group survives.
type RetentionStrategy string

const (
	KeepNewest   RetentionStrategy = "newest"
	KeepOldest   RetentionStrategy = "oldest"
	KeepLargest  RetentionStrategy = "largest"
	KeepSmallest RetentionStrategy = "smallest"
)

// SelectRetained returns the group member the strategy keeps. The sort is
// stable, so ties keep the earliest member in the group's insertion order;
// repeated calls on the same group return the same member.
func (d *DuplicateDetector) SelectRetained(group model.DuplicateGroup, strategy RetentionStrategy) (model.FileRecord, error) {
	if len(group.Members) == 0 {
		return model.FileRecord{}, fmt.Errorf("%w: empty duplicate group", ErrInvalidArgument)
	}

	members := make([]model.FileRecord, len(group.Members))
	copy(members, group.Members)

	switch strategy {
	case KeepNewest:
		sort.SliceStable(members, func(i, j int) bool { return members[i].ModifiedAt.After(members[j].ModifiedAt) })
	case KeepOldest:
		sort.SliceStable(members, func(i, j int) bool { return members[i].ModifiedAt.Before(members[j].ModifiedAt) })
	case KeepLargest:
		sort.SliceStable(members, func(i, j int) bool { return members[i].Size > members[j].Size })
	case KeepSmallest:
		sort.SliceStable(members, func(i, j int) bool { return members[i].Size < members[j].Size })
	default:
		return model.FileRecord{}, fmt.Errorf("%w: unknown retention strategy %q", ErrInvalidArgument, strategy)
	}

	return members[0], nil
}

// RemoveDuplicates keeps one member per group per the strategy and deletes
// the rest. Removal is best-effort: a failure on one member is audited and
// skipped without aborting the member's group or the remaining groups. The
// returned list contains only paths that were actually removed.
//
// When an archive vault is configured, each member's content is stored there
// (encrypted when an encryptor is configured) before deletion; a member whose
// archive fails is not deleted.
func (d *DuplicateDetector) RemoveDuplicates(groups []model.DuplicateGroup, strategy RetentionStrategy) ([]string, error) {
	var removed []string

	for _, group := range groups {
		if len(group.Members) < 2 {
			continue
		}

		kept, err := d.SelectRetained(group, strategy)
		if err != nil {
			return removed, err
		}

		for _, member := range group.Members {
			if member.Path == kept.Path {
				continue
			}
			if err := d.removeOne(member, kept.Path); err != nil {
				d.logger.Warn("removing duplicate", "path", member.Path, "error", err)
				d.recordRemoval(member.Path, model.StatusFailure, err.Error())
				continue
			}
			removed = append(removed, member.Path)
			d.recordRemoval(member.Path, model.StatusSuccess, fmt.Sprintf("kept file: %s", kept.Path))
		}
	}

	return removed, nil
}

// removeOne archives (when configured) and deletes a single member.
func (d *DuplicateDetector) removeOne(member model.FileRecord, keptPath string) error {
	if d.vault != nil {
		if err := d.archive(member); err != nil {
			return fmt.Errorf("archiving before removal: %w", err)
		}
	}
	if err := d.fsmgr.Remove(member.Path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	d.logger.Debug("duplicate removed", "path", member.Path, "kept", keptPath)
	return nil
}

func (d *DuplicateDetector) archive(member model.FileRecord) error {
	path, err := d.fsmgr.Resolve(member.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	r, err := d.fsmgr.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer r.Close()

	if d.encryptor != nil && d.encryptor.IsConfigured() {
		pr := newEncryptPipe(d.encryptor, r)
		defer pr.Close()
		// Encrypted size is unknowable up front; -1 disables the size check.
		return d.vault.PutContent(member.Hash, pr, -1)
	}
	return d.vault.PutContent(member.Hash, r, member.Size)
}

func (d *DuplicateDetector) recordRemoval(path string, status model.OperationStatus, details string) {
	if err := AppendOperation(d.audit, d.clock, model.OpDuplicateRemoval, path, "", status, details); err != nil {
		d.logger.Warn("recording duplicate removal", "path", path, "error", err)
	}
}

// Analyze summarizes duplicate groups: group count, duplicate file count, an
// estimate of reclaimable space, and a per-category breakdown keyed on each
// group's first member's classified category.
//
// Space uses one representative size per group. Exact groups have members of
// equal content, so the figure is precise; for similar groups it is an
// approximation and should be read as such.
func (d *DuplicateDetector) Analyze(ctx context.Context, groups []model.DuplicateGroup) (model.DuplicateStats, error) {
	stats := model.DuplicateStats{
		ByCategory: make(map[model.Category]int),
	}

	for _, group := range groups {
		if len(group.Members) < 2 {
			continue
		}
		extra := len(group.Members) - 1
		stats.TotalGroups++
		stats.TotalDuplicates += extra
		stats.SpaceReclaimable += group.Members[0].Size * int64(extra)

		category := d.categoryOf(ctx, group.Members[0])
		stats.ByCategory[category] += extra
	}

	return stats, nil
}

func (d *DuplicateDetector) categoryOf(ctx context.Context, rec model.FileRecord) model.Category {
	path, err := d.fsmgr.Resolve(rec.Path)
	if err != nil {
		return model.CategoryUnknown
	}
	cls, err := d.classifier.Classify(ctx, path)
	if err != nil {
		return model.CategoryUnknown
	}
	return cls.Category
}

// newEncryptPipe streams src through the encryptor, returning the ciphertext
// side as a reader. The goroutine closes the pipe with the encryption error,
// so a failed Encrypt surfaces to the consuming Read.
func newEncryptPipe(enc Encryptor, src io.Reader) *io.PipeReader {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(enc.Encrypt(src, pw))
	}()
	return pr
}
