package db

import (
	"encoding/json"
	"time"
)

// RawSignal maps signaldesk.raw_signals: the immutable capture of one fetch.
type RawSignal struct {
	RawSignalID   int64      `gorm:"column:raw_signal_id;primaryKey;autoIncrement"`
	RawSignalUUID string     `gorm:"column:raw_signal_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceType    string     `gorm:"column:source_type;type:text;not null"`
	SourceName    string     `gorm:"column:source_name;type:text;not null"`
	SourceURL     string     `gorm:"column:source_url;type:text;not null"`
	SourceDomain  string     `gorm:"column:source_domain;type:text;not null"`
	ExternalID    *string    `gorm:"column:external_id;type:text"`
	FetchedAt     time.Time  `gorm:"column:fetched_at;type:timestamptz;not null;default:now()"`
	ContentType   string     `gorm:"column:content_type;type:text;not null;default:text/html"`
	RawPayload    json.RawMessage `gorm:"column:raw_payload;type:jsonb;not null"`
	RawText       *string    `gorm:"column:raw_text;type:text"`
	ContentHash   string     `gorm:"column:content_hash;type:text;not null;unique"`
	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawSignal) TableName() string { return "signaldesk.raw_signals" }

// Signal maps signaldesk.signals: the interpreted view of a RawSignal.
type Signal struct {
	SignalID           int64           `gorm:"column:signal_id;primaryKey;autoIncrement"`
	SignalUUID         string          `gorm:"column:signal_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RawSignalID        int64           `gorm:"column:raw_signal_id;type:bigint;not null;unique"`
	CanonicalURL       *string         `gorm:"column:canonical_url;type:text"`
	Title              string          `gorm:"column:title;type:text;not null"`
	Author             *string         `gorm:"column:author;type:text"`
	PublishedAt        *time.Time      `gorm:"column:published_at;type:timestamptz"`
	Language           string          `gorm:"column:language;type:text;not null;default:en"`
	NormalizedSummary  *string         `gorm:"column:normalized_summary;type:text"`
	SuggestedHeadline  *string         `gorm:"column:suggested_headline;type:text"`
	Categories         []string        `gorm:"column:categories;type:jsonb;serializer:json"`
	EntitiesPlatforms  []string        `gorm:"column:entities_platforms;type:jsonb;serializer:json"`
	EntitiesCompanies  []string        `gorm:"column:entities_companies;type:jsonb;serializer:json"`
	EntitiesPeople     []string        `gorm:"column:entities_people;type:jsonb;serializer:json"`
	EntitiesTopics     []string        `gorm:"column:entities_topics;type:jsonb;serializer:json"`
	Confidence         *float64        `gorm:"column:confidence;type:double precision"`
	LLMProvider        *string         `gorm:"column:llm_provider;type:text"`
	LLMModel           *string         `gorm:"column:llm_model;type:text"`
	LLMPromptVersion   *string         `gorm:"column:llm_prompt_version;type:text"`
	LLMRawResponse     *string         `gorm:"column:llm_raw_response;type:text"`
	IngestStatus       string          `gorm:"column:ingest_status;type:text;not null;default:PENDING"`
	IngestReason       *string         `gorm:"column:ingest_reason;type:text"`
	NormalizedAt       *time.Time      `gorm:"column:normalized_at;type:timestamptz"`
	ClusterID          *int64          `gorm:"column:cluster_id;type:bigint"`
	ImageURL           *string         `gorm:"column:image_url;type:text"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Signal) TableName() string { return "signaldesk.signals" }

// StoryCluster maps signaldesk.story_clusters: a group of signals reporting
// the same underlying event.
type StoryCluster struct {
	ClusterID       int64           `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID     string          `gorm:"column:cluster_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Fingerprint     string          `gorm:"column:fingerprint;type:text;not null;unique"`
	Headline        string          `gorm:"column:headline;type:text;not null"`
	ContextSummary  string          `gorm:"column:context_summary;type:text;not null;default:''"`
	SearchText      string          `gorm:"column:search_text;type:text;not null;default:''"`
	Categories      []string        `gorm:"column:categories;type:jsonb;serializer:json"`
	ImportanceScore int64           `gorm:"column:importance_score;type:bigint;not null;default:0"`
	ScoreBreakdown  json.RawMessage `gorm:"column:score_breakdown;type:jsonb"`
	ManualBoost     int             `gorm:"column:manual_boost;type:integer;not null;default:0"`
	FirstSeenAt     time.Time       `gorm:"column:first_seen_at;type:timestamptz;not null"`
	LastSeenAt      time.Time       `gorm:"column:last_seen_at;type:timestamptz;not null"`
	LastSignalAt    time.Time       `gorm:"column:last_signal_at;type:timestamptz;not null"`
	Status          string          `gorm:"column:status;type:text;not null;default:ACTIVE"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (StoryCluster) TableName() string { return "signaldesk.story_clusters" }

// Platform maps signaldesk.platforms: a reference row for a companion
// platform (slug unique).
type Platform struct {
	PlatformID  int64     `gorm:"column:platform_id;primaryKey;autoIncrement"`
	Slug        string    `gorm:"column:slug;type:text;not null;unique"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	Website     *string   `gorm:"column:website;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Platform) TableName() string { return "signaldesk.platforms" }

// ClusterPlatform maps signaldesk.cluster_platforms: append-only link between
// a StoryCluster and a Platform.
type ClusterPlatform struct {
	ClusterID  int64     `gorm:"column:cluster_id;type:bigint;primaryKey"`
	PlatformID int64     `gorm:"column:platform_id;type:bigint;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ClusterPlatform) TableName() string { return "signaldesk.cluster_platforms" }

// SignalPlatform maps signaldesk.signal_platforms: append-only link between a
// Signal and a recognized Platform.
type SignalPlatform struct {
	SignalID   int64     `gorm:"column:signal_id;type:bigint;primaryKey"`
	PlatformID int64     `gorm:"column:platform_id;type:bigint;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (SignalPlatform) TableName() string { return "signaldesk.signal_platforms" }

// SourceCredibility maps signaldesk.source_credibility: domain to weight.
type SourceCredibility struct {
	SourceDomain string    `gorm:"column:source_domain;type:text;primaryKey"`
	Weight       float64   `gorm:"column:weight;type:double precision;not null;default:0.5"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (SourceCredibility) TableName() string { return "signaldesk.source_credibility" }

// IngestRun maps signaldesk.ingest_runs: one audit row per pipeline cycle.
type IngestRun struct {
	RunID           int64           `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID         string          `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	StartedAt       time.Time       `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt      *time.Time      `gorm:"column:finished_at;type:timestamptz"`
	Status          string          `gorm:"column:status;type:text;not null;default:RUNNING"`
	SignalsFetched  int             `gorm:"column:signals_fetched;type:integer;not null;default:0"`
	SignalsAccepted int             `gorm:"column:signals_accepted;type:integer;not null;default:0"`
	SignalsRejected int             `gorm:"column:signals_rejected;type:integer;not null;default:0"`
	Errors          json.RawMessage `gorm:"column:errors;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (IngestRun) TableName() string { return "signaldesk.ingest_runs" }

func autoMigrateModels() []any {
	return []any{
		&RawSignal{},
		&Signal{},
		&StoryCluster{},
		&Platform{},
		&ClusterPlatform{},
		&SignalPlatform{},
		&SourceCredibility{},
		&IngestRun{},
	}
}
