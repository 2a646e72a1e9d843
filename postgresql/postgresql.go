package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	//we expect to depend on specific behaviour of github.com/lib/pq
	_ "github.com/lib/pq"

	"github.com/xdbsoft/docrest/api"
	"github.com/xdbsoft/docrest/query"
)

func New(connStr string) (api.Repository, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	return &repository{
		db: db,
	}, nil
}

type repository struct {
	db *sql.DB
}

type notFound string

func (err notFound) IsNotFound() bool {
	return true
}
func (err notFound) Error() string {
	return string(err)
}

func (r *repository) Init(ctx context.Context) error {
	// Check if tables exists, if not create them
	rows, err := r.db.QueryContext(ctx, "SELECT to_regclass('t_document')")
	if err != nil {
		return errors.Wrap(err, "Select query for t_document failed")
	}
	defer rows.Close()
	tablesFound := false
	for rows.Next() {
		var found sql.NullString
		if err := rows.Scan(&found); err != nil {
			return errors.Wrap(err, "Select query for t_document failed")
		}
		tablesFound = len(found.String) > 0
	}
	if !tablesFound {
		if _, err := r.db.ExecContext(ctx, `CREATE TABLE t_document (
			collection text NOT NULL,
			id         character(24) NOT NULL,
			content    jsonb,
			created    timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated    timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT t_document_pkey PRIMARY KEY (collection, id)
		)`); err != nil {
			return errors.Wrap(err, "CREATE TABLE t_document failed")
		}
	}
	return nil
}

func (r *repository) Close(ctx context.Context) error {
	return r.db.Close()
}

// containment turns plain equalities on top level fields into a jsonb
// pre-filter. A value may be stored alone or inside an array, so each key
// accepts both shapes. Other filters are evaluated in process only.
func containment(filter api.Filter, first int) (string, []interface{}, bool) {
	if len(filter) == 0 {
		return "", nil, false
	}

	keys := make([]string, 0, len(filter))
	for k, v := range filter {
		if k == api.IDField || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return "", nil, false
		}
		switch v.(type) {
		case string, bool, float64, int32, int64, int:
		default:
			return "", nil, false
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []interface{}
	for _, k := range keys {
		scalar, err := json.Marshal(map[string]interface{}{k: filter[k]})
		if err != nil {
			return "", nil, false
		}
		array, err := json.Marshal(map[string]interface{}{k: []interface{}{filter[k]}})
		if err != nil {
			return "", nil, false
		}
		n := first + len(args)
		clauses = append(clauses, fmt.Sprintf("(content @> $%d::jsonb OR content @> $%d::jsonb)", n, n+1))
		args = append(args, string(scalar), string(array))
	}
	return strings.Join(clauses, " AND "), args, true
}

func decode(id string, content []byte) (api.Document, error) {

	doc := make(api.Document)
	if len(content) > 0 {
		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, errors.Wrap(err, "DB decoding failed")
		}
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.Wrap(err, "DB decoding failed")
	}
	doc[api.IDField] = oid
	return doc, nil
}

func (r *repository) matching(ctx context.Context, c string, filter api.Filter) ([]api.Document, error) {

	q := "SELECT id, content FROM t_document WHERE collection=$1"
	args := []interface{}{c}
	if clause, extra, ok := containment(filter, len(args)+1); ok {
		q += " AND " + clause
		args = append(args, extra...)
	}
	q += " ORDER BY created, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "DB query failed")
	}
	defer rows.Close()

	var result []api.Document
	for rows.Next() {
		var id string
		var b []byte
		if err := rows.Scan(&id, &b); err != nil {
			return nil, errors.Wrap(err, "DB retrieval failed")
		}

		doc, err := decode(id, b)
		if err != nil {
			return nil, err
		}

		ok, err := query.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "DB retrieval failed")
	}

	return result, nil
}

func (r *repository) Find(ctx context.Context, c string, q api.Query) ([]api.Document, error) {

	docs, err := r.matching(ctx, c, q.Filter)
	if err != nil {
		return nil, err
	}

	result := []api.Document{}
	for i := q.Offset; i < len(docs) && len(result) < q.Limit; i++ {
		result = append(result, query.Project(docs[i], q.Fields))
	}
	return result, nil
}

func (r *repository) Count(ctx context.Context, c string, filter api.Filter) (int64, error) {

	docs, err := r.matching(ctx, c, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (r *repository) FindOne(ctx context.Context, c string, id primitive.ObjectID) (api.Document, error) {

	var b []byte
	err := r.db.QueryRowContext(ctx, "SELECT content FROM t_document WHERE collection=$1 AND id=$2", c, api.EncodeID(id)).Scan(&b)
	if err == sql.ErrNoRows {
		return nil, notFound("document not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "Select query failed")
	}

	return decode(api.EncodeID(id), b)
}

func (r *repository) Insert(ctx context.Context, c string, payload api.Document) (primitive.ObjectID, error) {

	id := api.NextID()

	b, err := json.Marshal(payload.Without(api.IDField))
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "unable to encode payload")
	}

	if _, err := r.db.ExecContext(ctx, "INSERT INTO t_document (collection, id, content) VALUES ($1,$2,$3::jsonb)", c, api.EncodeID(id), string(b)); err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "unable to insert document")
	}

	return id, nil
}

func (r *repository) Replace(ctx context.Context, c string, id primitive.ObjectID, payload api.Document) error {

	b, err := json.Marshal(payload.Without(api.IDField))
	if err != nil {
		return errors.Wrap(err, "unable to encode payload")
	}

	if _, err := r.db.ExecContext(ctx, "UPDATE t_document SET content=$1::jsonb,updated=CURRENT_TIMESTAMP WHERE collection=$2 AND id=$3", string(b), c, api.EncodeID(id)); err != nil {
		return errors.Wrap(err, "unable to replace document")
	}

	return nil
}

// Patch sets each field, dotted names reaching into embedded documents. The
// row is locked while the document is rewritten.
func (r *repository) Patch(ctx context.Context, c string, id primitive.ObjectID, payload api.Document) error {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to start transaction")
	}
	defer tx.Rollback()

	var b []byte
	err = tx.QueryRowContext(ctx, "SELECT content FROM t_document WHERE collection=$1 AND id=$2 FOR UPDATE", c, api.EncodeID(id)).Scan(&b)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "Select query failed")
	}

	doc := make(api.Document)
	if len(b) > 0 {
		if err := json.Unmarshal(b, &doc); err != nil {
			return errors.Wrap(err, "DB decoding failed")
		}
	}
	for k, v := range payload.Without(api.IDField) {
		query.Set(doc, k, v)
	}

	content, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "unable to encode payload")
	}

	if _, err := tx.ExecContext(ctx, "UPDATE t_document SET content=$1::jsonb,updated=CURRENT_TIMESTAMP WHERE collection=$2 AND id=$3", string(content), c, api.EncodeID(id)); err != nil {
		return errors.Wrap(err, "unable to update document")
	}

	return errors.Wrap(tx.Commit(), "unable to commit update")
}

func (r *repository) Remove(ctx context.Context, c string, id primitive.ObjectID) error {

	if _, err := r.db.ExecContext(ctx, "DELETE FROM t_document where collection=$1 and id=$2", c, api.EncodeID(id)); err != nil {
		return errors.Wrap(err, "unable to delete document")
	}

	return nil
}
