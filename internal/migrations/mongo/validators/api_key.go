package validators

import "go.mongodb.org/mongo-driver/bson"

var APIKeyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "merchant_id", "kind", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"merchant_id": bson.M{"bsonType": "string"},
			"kind":        bson.M{"bsonType": "string", "enum": []string{"secret", "publishable"}},
			"hash":        bson.M{"bsonType": "string"},
			"permissions": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"expires_at":  bson.M{"bsonType": "date"},
			"revoked_at":  bson.M{"bsonType": "date"},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}
