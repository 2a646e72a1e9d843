package docrest

import (
	"github.com/xdbsoft/docrest/rules"
)

// Backends understood by Config.Backend
const (
	BackendMongoDB    = "mongodb"
	BackendPostgreSQL = "postgresql"
	BackendMemory     = "memory"
)

// CollectionDefinition exposes a collection. Verify optionally replaces the
// default create check by a condition on the payload.
type CollectionDefinition struct {
	Name   string
	Verify string
}

// Config contains all required information for the intialisation of a docrest server
type Config struct {
	Backend  string `default:"mongodb"`
	MongoURI string `default:"mongodb://localhost:27017"`
	Database string
	// DBConnStr is the PostgreSQL connection string
	DBConnStr string

	// Collections is the allow-list. When empty every collection is exposed.
	Collections []CollectionDefinition

	// EnableWrites binds PUT, PATCH and DELETE on documents
	EnableWrites bool
	// MaxLimit caps the page size when positive
	MaxLimit    int
	MetricsPath string `default:"/metrics"`
	Compress    bool
}

func (cfg Config) allowList() map[string]bool {
	if len(cfg.Collections) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(cfg.Collections))
	for _, c := range cfg.Collections {
		allowed[c.Name] = true
	}
	return allowed
}

func (cfg Config) rules() []rules.Rule {
	var res []rules.Rule
	for _, c := range cfg.Collections {
		if len(c.Verify) > 0 {
			res = append(res, rules.Rule{Collection: c.Name, If: c.Verify})
		}
	}
	return res
}

func (cfg Config) methods() []string {
	if cfg.EnableWrites {
		return []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	return []string{"GET", "POST", "OPTIONS"}
}
