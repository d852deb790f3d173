package model

import "time"

// Category is a file classification label.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryCode     Category = "code"
	CategoryArchive  Category = "archive"
	CategoryOther    Category = "other"
	CategoryUnknown  Category = "unknown"
)

// ClassificationMethod identifies how a category was assigned.
type ClassificationMethod string

const (
	MethodExtension ClassificationMethod = "extension"
	MethodContent   ClassificationMethod = "content"
)

// Classification is the result of classifying a single file.
type Classification struct {
	Path       string
	Category   Category
	Confidence float64 // in [0, 1]
	Method     ClassificationMethod
}

// FileRecord holds the attributes of a file as observed at one point in time.
// Records are computed on demand and become stale if the underlying file is
// mutated externally; callers must not assume they track the live filesystem.
type FileRecord struct {
	Path       string
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	MimeType   string
	Hash       string // SHA-256, lowercase hex
}

// GroupMethod identifies how a duplicate group was formed.
type GroupMethod string

const (
	// GroupExact groups files with identical content hashes.
	GroupExact GroupMethod = "exact"
	// GroupSimilar groups files whose signatures exceed a similarity threshold.
	GroupSimilar GroupMethod = "similar"
)

// DuplicateGroup is a set of files considered duplicates of each other.
// A group is homogeneous: all members were matched by the same method.
// Member order is insertion order and is significant for retention tie-breaks.
type DuplicateGroup struct {
	Hash    string // content hash for exact groups; empty for similar groups
	Method  GroupMethod
	Members []FileRecord
}

// SimilarPair is a pair of files whose signatures scored at or above the
// detection threshold.
type SimilarPair struct {
	PathA string
	PathB string
	Score float64
}

// OperationType enumerates the auditable operations.
type OperationType string

const (
	OpHashCalculation    OperationType = "hash_calculation"
	OpFileClassification OperationType = "file_classification"
	OpFileOrganization   OperationType = "file_organization"
	OpDuplicateRemoval   OperationType = "duplicate_removal"
	OpModelTraining      OperationType = "model_training"
	OpModelSave          OperationType = "model_save"
	OpModelLoad          OperationType = "model_load"
)

// OperationStatus is the outcome recorded for an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "success"
	StatusFailure OperationStatus = "failure"
)

// OperationLogEntry is one immutable row of the audit log.
type OperationLogEntry struct {
	ID              int64
	Timestamp       time.Time
	Type            OperationType
	SourcePath      string
	DestinationPath string // empty when the operation has no destination
	Status          OperationStatus
	Details         string
}

// FileMetadataSnapshot is the latest observed metadata for a path.
// Snapshots are keyed by path; recording a new snapshot for the same path
// replaces the previous one.
type FileMetadataSnapshot struct {
	Path       string
	Hash       string
	MimeType   string
	Size       int64
	ModifiedAt time.Time
	CreatedAt  time.Time
}

// OperationCount is one (type, status) bucket of an audit report.
type OperationCount struct {
	Type   OperationType
	Status OperationStatus
	Count  int64
}

// Report aggregates audit log operations over an optional time window.
type Report struct {
	TotalOperations int64
	Counts          []OperationCount
	SuccessRate     float64 // successes / total; 0 when there are no operations
}

// DuplicateStats summarizes a set of duplicate groups.
//
// SpaceReclaimable uses one representative member's size per group. For exact
// groups all members have equal content, so this is precise; for similar
// groups it is an approximation.
type DuplicateStats struct {
	TotalGroups      int
	TotalDuplicates  int   // sum of (len(group) - 1) over all groups
	SpaceReclaimable int64 // bytes freed if every group kept one member
	ByCategory       map[Category]int
}
