package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/xdbsoft/docrest"
)

func TestListenAddr(t *testing.T) {
	assert.Equal(t, "localhost:8000", listenAddr(""))
	assert.Equal(t, "0.0.0.0:8000", listenAddr("0.0.0.0"))
	assert.Equal(t, "0.0.0.0:9000", listenAddr("0.0.0.0:9000"))
	assert.Equal(t, ":9000", listenAddr(":9000"))
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("info", false)
	assert.NoError(t, err)

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {

	set := flag.NewFlagSet("docrest", flag.ContinueOnError)
	for _, f := range newApp().Flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse([]string{"--database", "shop", "--collections", "users, orders,", "--enable-writes", "--max-limit", "50"}))
	c := cli.NewContext(nil, set, nil)

	cfg := docrest.Config{Backend: docrest.BackendMemory, MongoURI: "mongodb://db:27017"}
	applyFlags(c, &cfg)

	assert.Equal(t, "shop", cfg.Database)
	assert.Equal(t, docrest.BackendMemory, cfg.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, []docrest.CollectionDefinition{{Name: "users"}, {Name: "orders"}}, cfg.Collections)
	assert.True(t, cfg.EnableWrites)
	assert.Equal(t, 50, cfg.MaxLimit)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, docrest.BackendMongoDB, cfg.Backend)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
}
