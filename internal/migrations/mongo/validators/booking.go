package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"start_date",
			"end_date",
			"requester_id",
			"status",
			"is_deleted",
			"slot_key",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"requester_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"approver_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"PENDING",
					"APPROVED",
					"REJECTED",
				},
			},

			"is_deleted": bson.M{
				"bsonType": "bool",
			},

			// "2006-01-02T15" of the slot start in business time.
			"slot_key": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}T\d{2}$`,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
