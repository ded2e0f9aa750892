package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentLinkValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id", "merchant_id", "payment_id", "amount", "currency",
			"client_secret", "status", "created_at", "expires_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "string"},
			"merchant_id":   bson.M{"bsonType": "string"},
			"payment_id":    bson.M{"bsonType": "string"},
			"amount":        bson.M{"bsonType": "long", "minimum": 1},
			"currency":      bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
			"description":   bson.M{"bsonType": "string", "maxLength": 255},
			"link_to_pay":   bson.M{"bsonType": "string"},
			"client_secret": bson.M{"bsonType": "string"},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"created", "initiated", "completed", "expired"},
			},
			"created_at": bson.M{"bsonType": "date"},
			"expires_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var PaymentLinkEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"payment_link_id", "merchant_id", "to", "at"},
		"additionalProperties": true,
		"properties": bson.M{
			"payment_link_id": bson.M{"bsonType": "string"},
			"merchant_id":     bson.M{"bsonType": "string"},
			"from":            bson.M{"bsonType": "string"},
			"to":              bson.M{"bsonType": "string"},
			"at":              bson.M{"bsonType": "date"},
		},
	},
}
