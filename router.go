package docrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/xdbsoft/docrest/api"
	"github.com/xdbsoft/docrest/format"
)

// Kind tells list routes from detail routes
type Kind int

const (
	List Kind = iota
	Detail
)

func (k Kind) String() string {
	if k == Detail {
		return "detail"
	}
	return "list"
}

const (
	listPattern   = `{format:(?:\.\w+)?}`
	detailPattern = `/{id}`
)

// Request carries what a view needs from the inbound request
type Request struct {
	api.ObjectRef
	Method string
	Query  url.Values

	r *http.Request
}

// Payload decodes the JSON object sent as body. An empty body gives an empty document.
func (req Request) Payload() (api.Document, error) {
	payload := make(api.Document)
	if req.r == nil || req.r.Body == nil {
		return payload, nil
	}
	defer req.r.Body.Close()
	d := json.NewDecoder(req.r.Body)
	err := d.Decode(&payload)
	if err != nil && err != io.EOF {
		return nil, badRequest(errors.Wrap(err, "Unable to decode JSON body").Error())
	}
	if payload == nil {
		payload = make(api.Document)
	}
	return payload, nil
}

//Pretty reports whether the client asked for indented JSON
func (req Request) Pretty() bool {
	return req.Query.Get("print") == "pretty"
}

// View answers a request on behalf of a collection
type View func(ctx context.Context, g *Gateway, req Request) (*Response, error)

type viewKey struct {
	Method string
	Kind   Kind
}

// genericViews are used for every collection without an override
var genericViews = map[viewKey]View{
	{http.MethodGet, List}:       getList,
	{http.MethodPost, List}:      postList,
	{http.MethodOptions, List}:   options,
	{http.MethodGet, Detail}:     getDetail,
	{http.MethodPut, Detail}:     putDetail,
	{http.MethodPatch, Detail}:   patchDetail,
	{http.MethodDelete, Detail}:  deleteDetail,
	{http.MethodOptions, Detail}: options,
}

type override struct {
	Method     string
	Collection string
	Kind       Kind
	View       View
}

func getList(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	page, err := g.GetList(ctx, req.Collection, req.Query)
	if err != nil {
		return nil, err
	}

	encode, contentType := format.Resolve(req.Format)
	if contentType == format.ContentTypeJSON && req.Pretty() {
		encode = format.EncodeIndentedJSON
	}
	b, err := encode(page)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode page")
	}
	return &Response{Status: http.StatusOK, ContentType: contentType, Body: b}, nil
}

func postList(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}

	id, err := g.PostList(ctx, req.Collection, payload)
	if isVerificationFailed(err) {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": err.Error()}, false)
	}
	if err != nil {
		return nil, err
	}
	return jsonResponse(http.StatusCreated, map[string]string{api.IDField: api.EncodeID(id)}, req.Pretty())
}

func getDetail(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	doc, err := g.GetDetail(ctx, req.Collection, req.ID)
	if err != nil {
		return nil, err
	}
	return jsonResponse(http.StatusOK, doc, req.Pretty())
}

func putDetail(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}
	doc, err := g.PutDetail(ctx, req.Collection, req.ID, payload)
	if err != nil {
		return nil, err
	}
	return jsonResponse(http.StatusAccepted, doc, req.Pretty())
}

func patchDetail(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}
	doc, err := g.PatchDetail(ctx, req.Collection, req.ID, payload)
	if err != nil {
		return nil, err
	}
	return jsonResponse(http.StatusAccepted, doc, req.Pretty())
}

func deleteDetail(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	if err := g.DeleteDetail(ctx, req.Collection, req.ID); err != nil {
		return nil, err
	}
	return &Response{Status: http.StatusNoContent}, nil
}

// options answers CORS preflights with an empty body, whatever the collection
func options(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	return &Response{Status: http.StatusOK}, nil
}

func notImplemented(ctx context.Context, g *Gateway, req Request) (*Response, error) {
	return nil, notImplementedError{Method: req.Method, Path: "/" + req.String()}
}

func isKnownMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// dispatch adapts a view to an http handler. collection is empty for generic
// routes, where it comes from the path.
func (s *Server) dispatch(collection string, v View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		vars := mux.Vars(r)
		collection := collection
		if len(collection) == 0 {
			collection = vars["collection"]
		}

		req := Request{
			ObjectRef: api.ObjectRef{
				Collection: collection,
				ID:         vars["id"],
				Format:     vars["format"],
			},
			Method: r.Method,
			Query:  r.URL.Query(),
			r:      r,
		}

		resp, err := v(r.Context(), s.gateway, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeResponse(w, r, resp)
	}
}

// routes builds the static route table. Overrides come first so that they
// win over the generic routes for their collection.
func (s *Server) routes() *mux.Router {

	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, notFoundError{req.URL.Path})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isKnownMethod(req.Method) {
			s.writeError(w, req, notImplementedError{Method: req.Method, Path: req.URL.Path})
			return
		}
		s.writeError(w, req, methodNotAllowedError(req.Method))
	})

	if len(s.cfg.MetricsPath) > 0 {
		r.Handle(s.cfg.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	enabled := make(map[string]bool)
	for _, m := range s.cfg.methods() {
		enabled[m] = true
	}

	for _, o := range s.overrides {
		if !enabled[o.Method] {
			continue
		}
		pattern := "/" + o.Collection + listPattern
		if o.Kind == Detail {
			pattern = "/" + o.Collection + detailPattern
		}
		r.HandleFunc(pattern, s.dispatch(o.Collection, o.View)).Methods(o.Method)
	}

	for _, m := range s.cfg.methods() {
		for _, kind := range []Kind{List, Detail} {
			v, ok := genericViews[viewKey{m, kind}]
			if !ok {
				v = notImplemented
			}
			pattern := `/{collection:\w+}` + listPattern
			if kind == Detail {
				pattern = `/{collection:\w+}` + detailPattern
			}
			r.HandleFunc(pattern, s.dispatch("", v)).Methods(m)
		}
	}

	return r
}
