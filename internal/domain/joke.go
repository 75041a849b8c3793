package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
)

// SourceManual marks jokes entered by hand rather than extracted from a video.
const SourceManual = "manual"

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// JokeRecord is one comedic segment. Column names follow the comic_segments
// table that the similarity functions read.
//
// BridgeContent is always derived from SearchableText. A record with
// BridgeContent set and BridgeEmbedding nil is a valid partial state.
type JokeRecord struct {
	ID               int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SourceID         string           `gorm:"column:video_id;type:text;not null;index:idx_comic_segments_video" json:"source_id"`
	RawText          string           `gorm:"column:original_text;type:text" json:"raw_text"`
	SearchableText   string           `gorm:"column:searchable_text;type:text;not null" json:"searchable_text"`
	Tags             StringArray      `gorm:"column:meta_tags;type:text" json:"tags"`
	ContentEmbedding *pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	BridgeContent    *string          `gorm:"column:bridge_content;type:text" json:"bridge_content"`
	BridgeEmbedding  *pgvector.Vector `gorm:"column:bridge_embedding;type:vector" json:"-"`
	CreatedAt        time.Time        `gorm:"column:created_at;index:idx_comic_segments_created" json:"created_at"`
}

// TableName returns the database table name for JokeRecord.
func (JokeRecord) TableName() string {
	return "comic_segments"
}

// HasBridge reports whether bridge text has been generated.
func (j *JokeRecord) HasBridge() bool {
	return j.BridgeContent != nil && *j.BridgeContent != ""
}

func (j *JokeRecord) HasBridgeEmbedding() bool {
	return j.BridgeEmbedding != nil && len(j.BridgeEmbedding.Slice()) > 0
}

func (j *JokeRecord) HasContentEmbedding() bool {
	return j.ContentEmbedding != nil && len(j.ContentEmbedding.Slice()) > 0
}

// SetContentEmbedding stores the vector of SearchableText.
func (j *JokeRecord) SetContentEmbedding(vec []float32) {
	if len(vec) == 0 {
		j.ContentEmbedding = nil
		return
	}
	v := pgvector.NewVector(vec)
	j.ContentEmbedding = &v
}

// JokeView is the API representation of a record: vectors are replaced by flags.
type JokeView struct {
	JokeRecord
	HasBridgeEmbedding bool `json:"has_bridge_embedding"`
	HasEmbedding       bool `json:"has_embedding"`
}

// View builds the API representation of the record.
func (j *JokeRecord) View() JokeView {
	return JokeView{
		JokeRecord:         *j,
		HasBridgeEmbedding: j.HasBridgeEmbedding(),
		HasEmbedding:       j.HasContentEmbedding(),
	}
}

// JokeMatch is one similarity-search hit, ordered by descending Similarity.
type JokeMatch struct {
	ID             int64       `json:"id"`
	SourceID       string      `json:"source_id"`
	SearchableText string      `json:"searchable_text"`
	BridgeContent  string      `json:"bridge_content"`
	Tags           StringArray `json:"tags"`
	Similarity     float64     `json:"similarity"`
}

// Enrichment holds the derived bridge fields produced for a joke.
// Either field may be empty; BridgeEmbedding is only set when BridgeContent is.
type Enrichment struct {
	BridgeContent   string    `json:"bridge_content,omitempty"`
	BridgeEmbedding []float32 `json:"-"`
}

func (e Enrichment) HasBridge() bool {
	return e.BridgeContent != ""
}

func (e Enrichment) HasBridgeEmbedding() bool {
	return len(e.BridgeEmbedding) > 0
}

// ApplyTo merges the populated fields into rec, leaving the others untouched.
func (e Enrichment) ApplyTo(rec *JokeRecord) {
	if !e.HasBridge() {
		return
	}
	bridge := e.BridgeContent
	rec.BridgeContent = &bridge
	if e.HasBridgeEmbedding() {
		v := pgvector.NewVector(e.BridgeEmbedding)
		rec.BridgeEmbedding = &v
	}
}

// Stats summarizes bridge coverage of the store.
type Stats struct {
	TotalSegments       int64            `json:"total_segments"`
	WithBridge          int64            `json:"with_bridge"`
	WithoutBridge       int64            `json:"without_bridge"`
	WithBridgeEmbedding int64            `json:"with_bridge_embedding"`
	Sources             map[string]int64 `json:"videos"`
}
