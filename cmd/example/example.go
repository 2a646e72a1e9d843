package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/xdbsoft/docrest"
	"github.com/xdbsoft/docrest/api"
)

// upperName shows a bundler: stored documents are left untouched
func upperName(d api.Document) api.Document {
	if name, ok := d["name"].(string); ok {
		d["name"] = strings.ToUpper(name)
	}
	return d
}

// stats replaces the generic list view of the "stats" collection
func stats(ctx context.Context, g *docrest.Gateway, req docrest.Request) (*docrest.Response, error) {
	page, err := g.GetList(ctx, "users", req.Query)
	if err != nil {
		return nil, err
	}
	return &docrest.Response{
		Status:      http.StatusOK,
		ContentType: "text/plain",
		Body:        []byte(fmt.Sprintf("%d users\n", page.Meta.TotalCount)),
	}, nil
}

func main() {

	cfg := docrest.Config{
		Backend:  docrest.BackendMongoDB,
		MongoURI: "mongodb://localhost:27017",
		Database: "example",
		Collections: []docrest.CollectionDefinition{
			{Name: "users"},
			{Name: "comments", Verify: `doc.kind == 'comment'`}, //Replaces the default field count check
		},
		MetricsPath: "/metrics",
	}

	s, err := docrest.New(context.Background(), cfg,
		docrest.WithBundler("users", upperName),
		docrest.WithView("GET", "stats", docrest.List, stats),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close(context.Background())

	http.Handle("/", s)

	log.Fatal(http.ListenAndServe(":8080", nil))
}
