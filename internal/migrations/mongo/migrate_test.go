package mongo

import (
	"reflect"
	"strings"
	"testing"

	"payrouter/pkg/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func bsonFields(v any) map[string]bool {
	fields := map[string]bool{}
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("bson")
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			fields[name] = true
		}
	}
	return fields
}

func schemaOf(validator bson.M) bson.M {
	return validator["$jsonSchema"].(bson.M)
}

// The collection validators must only name fields the models actually persist.
func TestValidators_MatchModels(t *testing.T) {
	models := map[string]any{
		"payment_links":       model.PaymentLink{},
		"payment_link_events": model.PaymentLinkEvent{},
		"api_keys":            model.APIKey{},
	}

	defs := collections()
	assert.Len(t, defs, len(models))

	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			def, ok := defs[name]
			if !assert.True(t, ok, "collection %s not migrated", name) {
				return
			}
			assert.NotEmpty(t, def.Indexes)

			fields := bsonFields(m)
			schema := schemaOf(def.Validator)
			for _, req := range schema["required"].([]string) {
				assert.True(t, fields[req], "required field %s missing from model", req)
			}
			for prop := range schema["properties"].(bson.M) {
				assert.True(t, fields[prop], "property %s missing from model", prop)
			}
		})
	}
}

func TestPaymentLinkValidator_StatusEnum(t *testing.T) {
	props := schemaOf(defsValidator(t, "payment_links"))["properties"].(bson.M)
	enum := props["status"].(bson.M)["enum"].([]string)

	assert.ElementsMatch(t, []string{
		string(model.PaymentLinkCreated),
		string(model.PaymentLinkInitiated),
		string(model.PaymentLinkCompleted),
		string(model.PaymentLinkExpired),
	}, enum)
}

func defsValidator(t *testing.T, name string) bson.M {
	t.Helper()
	return collections()[name].Validator
}
