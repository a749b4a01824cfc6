package domain

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// StringArray stores a string slice as JSON text.
type StringArray []string

// Value implements driver.Valuer.
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

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("failed to scan StringArray")
}

// ClaimRecordID is the surrogate key for the natural key (originURL, claimText):
// the first 16 bytes of sha256(originURL + "_" + claimText), hex encoded.
// Parameters:
//   - originURL: origin of the submission.
//   - claimText: normalized claim text.
// Returns:
//   - string: 32-character hex identifier, stable across processes.
func ClaimRecordID(originURL, claimText string) string {
	sum := sha256.Sum256([]byte(originURL + "_" + claimText))
	return hex.EncodeToString(sum[:16])
}

// VerifiedClaim is the durable record of one verified claim.
type VerifiedClaim struct {
	ID          string             `gorm:"type:varchar(32);primaryKey" json:"id" bson:"_id"`
	OriginURL   string             `gorm:"type:varchar(2048);not null;uniqueIndex:idx_claims_natural_key" json:"origin_url" bson:"origin_url"`
	ClaimText   string             `gorm:"type:text;not null;uniqueIndex:idx_claims_natural_key" json:"claim" bson:"claim_text"`
	OriginLabel string             `gorm:"type:varchar(255)" json:"origin_label" bson:"origin_label"`
	Category    Category           `gorm:"type:varchar(32);index:idx_claims_category" json:"category" bson:"category"`
	Context     string             `gorm:"type:text" json:"context,omitempty" bson:"context,omitempty"`
	Status      VerificationStatus `gorm:"type:varchar(32);index:idx_claims_status" json:"status" bson:"status"`
	Confidence  int                `json:"confidence" bson:"confidence"`
	Evidence    string             `gorm:"type:text" json:"evidence" bson:"evidence"`
	Sources     StringArray        `gorm:"type:text" json:"sources" bson:"sources"`
	RawText     string             `gorm:"type:text" json:"raw_text,omitempty" bson:"raw_text,omitempty"`
	Images      StringArray        `gorm:"type:text" json:"images" bson:"images"`
	Videos      StringArray        `gorm:"type:text" json:"videos" bson:"videos"`
	Metadata    datatypes.JSONMap  `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// TableName returns the table name for gorm.
func (VerifiedClaim) TableName() string {
	return "verified_claims"
}

// SaveOutcome is the per-claim result of the persistence stage.
type SaveOutcome struct {
	ClaimID  string `json:"claim_id"`
	RecordID string `json:"record_id,omitempty"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts"`
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Status    VerificationStatus
	Category  Category
	OriginURL string
	Limit     int
	Offset    int
}
