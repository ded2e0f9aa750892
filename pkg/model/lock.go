package model

import "time"

// LockRecord is a resource lock as stored in MongoDB. The _id is the lock key, so the
// unique index on _id enforces a single holder.
type LockRecord struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
