package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about a media file attached to a plan session,
// typically a coach's briefing video. The actual file resides in S3 and is
// only ever reached through presigned URLs.
type Upload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID   primitive.ObjectID `bson:"sessionId" json:"sessionId"`     // Link back to the plan session
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`         // Link to the coach who uploaded
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`     // Denormalized for athlete-side access checks
	S3ObjectKey string             `bson:"s3ObjectKey" json:"-"`           // The unique key (path/filename) in the S3 bucket - internal use
	FileName    string             `bson:"fileName" json:"fileName"`       // Original filename provided by coach
	ContentType string             `bson:"contentType" json:"contentType"` // MIME type (e.g., "video/mp4")
	Size        int64              `bson:"size" json:"size"`               // File size in bytes
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
