package db

import (
	"encoding/json"
	"time"
)

// Product statuses. Transitions are owned by the lifecycle controller;
// scoring never writes status.
const (
	StatusFlagged   = "flagged"
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Product maps trend.products.
type Product struct {
	ProductID    int64    `gorm:"column:product_id;primaryKey;autoIncrement"`
	ProductUUID  string   `gorm:"column:product_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	DisplayName  string   `gorm:"column:display_name;type:text;not null"`
	Brand        *string  `gorm:"column:brand;type:text"`
	Slug         string   `gorm:"column:slug;type:text;not null;unique"`
	CanonicalURL *string  `gorm:"column:canonical_url;type:text"`
	CanonicalKey *string  `gorm:"column:canonical_key;type:text"`
	Price        *float64 `gorm:"column:price;type:numeric"`

	BaseScore    int `gorm:"column:base_score;type:integer;not null;default:0"`
	CurrentScore int `gorm:"column:current_score;type:integer;not null;default:0"`
	PeakScore    int `gorm:"column:peak_score;type:integer;not null;default:0"`

	FirstDetectedAt         *time.Time `gorm:"column:first_detected_at;type:timestamptz"`
	OnPrimarySource         bool       `gorm:"column:on_primary_source;type:boolean;not null;default:false"`
	LastSeenOnPrimarySource *time.Time `gorm:"column:last_seen_on_primary_source;type:timestamptz"`

	PrimaryRating      *float64   `gorm:"column:primary_rating;type:double precision"`
	PrimaryReviewCount *int       `gorm:"column:primary_review_count;type:integer"`
	MetadataCheckedAt  *time.Time `gorm:"column:metadata_checked_at;type:timestamptz"`

	Status    string    `gorm:"column:status;type:text;not null;default:flagged"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Product) TableName() string { return "trend.products" }

// Signal maps trend.signals. Rows are insert-only; re-ingesting the same
// (product, source, external_ref) is a no-op.
type Signal struct {
	SignalID    int64           `gorm:"column:signal_id;primaryKey;autoIncrement"`
	SignalUUID  string          `gorm:"column:signal_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ProductID   int64           `gorm:"column:product_id;type:bigint;not null;uniqueIndex:idx_signals_idempotency,priority:1"`
	Source      string          `gorm:"column:source;type:text;not null;uniqueIndex:idx_signals_idempotency,priority:2"`
	ExternalRef string          `gorm:"column:external_ref;type:text;not null;uniqueIndex:idx_signals_idempotency,priority:3"`
	SignalType  string          `gorm:"column:signal_type;type:text;not null"`
	Value       *float64        `gorm:"column:value;type:double precision"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	DetectedAt  time.Time       `gorm:"column:detected_at;type:timestamptz;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Signal) TableName() string { return "trend.signals" }

// ScoreSample maps trend.score_samples, the append-only sparkline series.
type ScoreSample struct {
	SampleID     int64     `gorm:"column:sample_id;primaryKey;autoIncrement"`
	ProductID    int64     `gorm:"column:product_id;type:bigint;not null"`
	BaseScore    int       `gorm:"column:base_score;type:integer;not null"`
	CurrentScore int       `gorm:"column:current_score;type:integer;not null"`
	RecordedAt   time.Time `gorm:"column:recorded_at;type:timestamptz;not null;default:now()"`
}

func (ScoreSample) TableName() string { return "trend.score_samples" }

// ProductContent maps trend.product_contents, the content collaborator's
// record. A row must exist before a product can be published.
type ProductContent struct {
	ContentID     int64      `gorm:"column:content_id;primaryKey;autoIncrement"`
	ProductID     int64      `gorm:"column:product_id;type:bigint;not null;unique"`
	Title         string     `gorm:"column:title;type:text;not null"`
	Body          string     `gorm:"column:body;type:text;not null;default:''"`
	ContentStatus string     `gorm:"column:content_status;type:text;not null;default:ready"`
	PublishedAt   *time.Time `gorm:"column:published_at;type:timestamptz"`
	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ProductContent) TableName() string { return "trend.product_contents" }

// ProductAlias maps trend.product_aliases. Merge records the duplicate's
// slug here so old links keep resolving.
type ProductAlias struct {
	AliasID   int64     `gorm:"column:alias_id;primaryKey;autoIncrement"`
	ProductID int64     `gorm:"column:product_id;type:bigint;not null"`
	Slug      string    `gorm:"column:slug;type:text;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ProductAlias) TableName() string { return "trend.product_aliases" }

// LifecycleEvent maps trend.lifecycle_events, the transition audit trail.
type LifecycleEvent struct {
	EventID    int64     `gorm:"column:event_id;primaryKey;autoIncrement"`
	ProductID  int64     `gorm:"column:product_id;type:bigint;not null"`
	FromStatus string    `gorm:"column:from_status;type:text;not null"`
	ToStatus   string    `gorm:"column:to_status;type:text;not null"`
	Actor      string    `gorm:"column:actor;type:text;not null"`
	Reason     *string   `gorm:"column:reason;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (LifecycleEvent) TableName() string { return "trend.lifecycle_events" }

// ScanRun maps trend.scan_runs, per-batch bookkeeping.
type ScanRun struct {
	RunID           int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID         string     `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Kind            string     `gorm:"column:kind;type:text;not null"`
	StartedAt       time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt      *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status          string     `gorm:"column:status;type:text;not null;default:running"`
	CandidatesSeen  int        `gorm:"column:candidates_seen;type:integer;not null;default:0"`
	ProductsUpdated int        `gorm:"column:products_updated;type:integer;not null;default:0"`
	ProductsSkipped int        `gorm:"column:products_skipped;type:integer;not null;default:0"`
	ProductsFailed  int        `gorm:"column:products_failed;type:integer;not null;default:0"`
	ErrorMessage    *string    `gorm:"column:error_message;type:text"`
	CreatedAt       time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ScanRun) TableName() string { return "trend.scan_runs" }

func autoMigrateModels() []any {
	return []any{
		&Product{},
		&Signal{},
		&ScoreSample{},
		&ProductContent{},
		&ProductAlias{},
		&LifecycleEvent{},
		&ScanRun{},
	}
}
