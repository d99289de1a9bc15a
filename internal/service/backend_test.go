package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/models"
)

type apiCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

type apiReply struct {
	status int
	body   any
	err    error
}

// fakeAPI is a scripted BackendAPI. Replies are keyed by "METHOD path".
type fakeAPI struct {
	mu      sync.Mutex
	replies map[string]apiReply
	calls   []apiCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{replies: make(map[string]apiReply)}
}

func (f *fakeAPI) on(method, path string, body any) *fakeAPI {
	f.replies[method+" "+path] = apiReply{status: http.StatusOK, body: body}
	return f
}

// onQuery scripts a reply for one exact query string, taking precedence over on.
func (f *fakeAPI) onQuery(method, path string, query url.Values, body any) *fakeAPI {
	f.replies[method+" "+path+"?"+query.Encode()] = apiReply{status: http.StatusOK, body: body}
	return f
}

func (f *fakeAPI) fail(method, path string, status int, detail string) *fakeAPI {
	f.replies[method+" "+path] = apiReply{err: &backend.APIError{Status: status, StatusText: http.StatusText(status), URL: path, Detail: detail}}
	return f
}

func (f *fakeAPI) callsTo(method, path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) Get(ctx context.Context, _ backend.Credentials, path string, query url.Values, out any) error {
	return f.do(ctx, http.MethodGet, path, query, nil, out)
}

func (f *fakeAPI) Post(ctx context.Context, _ backend.Credentials, path string, body, out any) error {
	return f.do(ctx, http.MethodPost, path, nil, body, out)
}

func (f *fakeAPI) Patch(ctx context.Context, _ backend.Credentials, path string, body, out any) error {
	return f.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (f *fakeAPI) Delete(ctx context.Context, _ backend.Credentials, path string) error {
	return f.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (f *fakeAPI) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := apiCall{Method: method, Path: path, Query: query}
	if body != nil {
		raw, _ := json.Marshal(body)
		_ = json.Unmarshal(raw, &call.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := f.replies[method+" "+path+"?"+query.Encode()]
	if !ok || len(query) == 0 {
		reply, ok = f.replies[method+" "+path]
	}
	f.mu.Unlock()

	if !ok {
		return &backend.APIError{Status: http.StatusNotFound, StatusText: "Not Found", URL: path, Detail: "Not found."}
	}
	if reply.err != nil {
		return reply.err
	}
	if out == nil || reply.body == nil {
		return nil
	}
	raw, err := json.Marshal(reply.body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func tutorCaller(id models.ID) Caller {
	return Caller{User: models.User{ID: id, Username: "tutor", Role: models.RoleTutor}}
}

func studentCaller(id models.ID) Caller {
	return Caller{User: models.User{ID: id, Username: "alumno", Role: models.RoleStudent}}
}
