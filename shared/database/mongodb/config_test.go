package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())

	names := make([]string, 0, len(config.Collections))
	for _, coll := range config.Collections {
		names = append(names, coll.Name)
	}
	assert.ElementsMatch(t, []string{CollectionSettlements, CollectionListings, CollectionOrderListings}, names)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing uri", func(c *Config) { c.URI = "" }},
		{"missing database", func(c *Config) { c.Database = "" }},
		{"pool sizes inverted", func(c *Config) { c.MinPoolSize = c.MaxPoolSize + 1 }},
		{"no breaker threshold", func(c *Config) { c.CircuitBreaker.FailureThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestParseReadPreference(t *testing.T) {
	assert.Equal(t, readpref.PrimaryMode, parseReadPreference("").Mode())
	assert.Equal(t, readpref.SecondaryPreferredMode, parseReadPreference("secondaryPreferred").Mode())
	assert.Equal(t, readpref.NearestMode, parseReadPreference("nearest").Mode())
}

func TestIndexKeys(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "host_id", Value: 1}, {Key: "status", Value: 1}},
		indexKeys([]string{"host_id", "status"}))
}
