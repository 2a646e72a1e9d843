package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
)

//EncodeCSV writes the objects of a page, one row per document. Embedded
//documents are flattened into dotted column names.
func EncodeCSV(v interface{}) ([]byte, error) {

	docs, err := rows(v)
	if err != nil {
		return nil, err
	}

	flat := make([]map[string]string, 0, len(docs))
	keys := make(map[string]struct{})
	for _, d := range docs {
		row := make(map[string]string)
		flatten("", map[string]interface{}(d), row)
		for k := range row {
			keys[k] = struct{}{}
		}
		flat = append(flat, row)
	}

	var b bytes.Buffer
	if len(keys) == 0 {
		return b.Bytes(), nil
	}

	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	w := csv.NewWriter(&b)
	w.UseCRLF = true
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "unable to write csv header")
	}
	for _, row := range flat {
		record := make([]string, len(header))
		for i, k := range header {
			record[i] = row[k]
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "unable to write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "unable to flush csv")
	}
	return b.Bytes(), nil
}

func rows(v interface{}) ([]api.Document, error) {
	switch r := v.(type) {
	case api.Page:
		return r.Objects, nil
	case *api.Page:
		return r.Objects, nil
	case []api.Document:
		return r, nil
	case api.Document:
		return []api.Document{r}, nil
	}
	return nil, errors.Errorf("cannot encode %T as csv", v)
}

func embedded(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return m, true
	case api.Document:
		return m, true
	case primitive.D:
		return m.Map(), true
	}
	return nil, false
}

func flatten(prefix string, doc map[string]interface{}, row map[string]string) {
	for k, v := range doc {
		key := k
		if len(prefix) > 0 {
			key = prefix + "." + k
		}
		if sub, ok := embedded(v); ok {
			flatten(key, sub, row)
			continue
		}
		row[key] = cell(v)
	}
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []interface{}, primitive.A:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
