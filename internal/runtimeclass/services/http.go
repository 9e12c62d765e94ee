package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// AsyncHTTPPath is MEng.System.Runtime.AsyncHTTP's class path.
const AsyncHTTPPath = "MEng.System.Runtime.AsyncHTTP"

const (
	errOrdHTTPBusy uint32 = iota + 1
	errOrdHTTPCancel
	errOrdHTTPOutput
	errOrdHTTPStart
	errOrdHTTPStatus
)

// asyncHTTPState mirrors CIDMacroEng_AsyncHTTP.cpp's c4AddEnumItem
// triple (Waiting/Complete/Error), with an Idle state added in front
// for the not-yet-started case the original left implicit (a request
// object that has never had Start called on it).
type asyncHTTPState int64

const (
	httpStateIdle asyncHTTPState = iota
	httpStateWaiting
	httpStateComplete
	httpStateError
)

type asyncHTTPResult struct {
	body []byte
	err  error
}

// asyncHTTPStorage tracks one in-flight or completed request. Start
// spawns a goroutine that performs the call and stashes the outcome
// under mu; CancelOp cancels the context driving that goroutine,
// grounded on the original's cancellable async-operation queue but
// implemented with context.Context rather than a thread-pool job
// object.
type asyncHTTPStorage struct {
	mu     sync.Mutex
	state  asyncHTTPState
	result *asyncHTTPResult
	cancel context.CancelFunc
}

// AsyncHTTP is MEng.System.Runtime.AsyncHTTP: a non-blocking HTTP
// GET/POST client with an Idle/Waiting/Complete/Error state machine,
// grounded on CIDMacroEng_AsyncHTTP.cpp's TMEngAsyncHTTPInfo
// (StartGETRedir/StartPOST/GetStatus/GetOutput/CancelOp), using
// stdlib net/http in a goroutine in place of the original's
// CIDLib background-thread HTTP client.
type AsyncHTTP struct {
	idStartGETRedir, idStartPOST ids.MethodID
	idGetStatus, idGetOutput     ids.MethodID
	idCancelOp                   ids.MethodID
}

func NewAsyncHTTP() *AsyncHTTP { return &AsyncHTTP{} }

func (a *AsyncHTTP) Path() string { return AsyncHTTPPath }

func (a *AsyncHTTP) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(a.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"StartGETRedir": &a.idStartGETRedir, "StartPOST": &a.idStartPOST,
		"GetStatus": &a.idGetStatus, "GetOutput": &a.idGetOutput, "CancelOp": &a.idCancelOp,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (a *AsyncHTTP) MakeStorage(bool) classmeta.Payload {
	return &asyncHTTPStorage{state: httpStateIdle}
}

func (a *AsyncHTTP) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*asyncHTTPStorage)
	if store == nil {
		store = &asyncHTTPStorage{state: httpStateIdle}
		receiver.Payload = store
	}

	switch methodID {
	case a.idStartGETRedir:
		return receiver, true, a.start(ctx, receiver, store, http.MethodGet, strArg(args, 0), "", "")

	case a.idStartPOST:
		return receiver, true, a.start(ctx, receiver, store, http.MethodPost, strArg(args, 0), strArg(args, 1), strArg(args, 2))

	case a.idGetStatus:
		store.mu.Lock()
		state := store.state
		store.mu.Unlock()
		return classmeta.NewValueObject(ids.InvalidClassID, int64(state)), true, nil

	case a.idGetOutput:
		store.mu.Lock()
		defer store.mu.Unlock()
		if store.state == httpStateWaiting {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdHTTPBusy, "request is still in progress")
		}
		if store.result == nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdHTTPOutput, "no request has been started")
		}
		if store.result.err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdHTTPStatus, store.result.err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, store.result.body), true, nil

	case a.idCancelOp:
		store.mu.Lock()
		cancel := store.cancel
		store.mu.Unlock()
		if cancel == nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdHTTPCancel, "no request is in progress")
		}
		cancel()
		return receiver, true, nil
	}
	return nil, false, nil
}

func (a *AsyncHTTP) start(ctx runtimeclass.EngineContext, receiver *classmeta.ValueObject, store *asyncHTTPStorage, method, rawURL, contentType, body string) error {
	store.mu.Lock()
	if store.state == httpStateWaiting {
		store.mu.Unlock()
		return ctx.Raise(receiver.ClassID, errOrdHTTPBusy, "an operation is still in progress")
	}
	if _, err := url.Parse(rawURL); err != nil {
		store.mu.Unlock()
		return ctx.Raise(receiver.ClassID, errOrdHTTPStart, err.Error())
	}
	reqCtx, cancel := context.WithCancel(context.Background())
	store.state = httpStateWaiting
	store.result = nil
	store.cancel = cancel
	store.mu.Unlock()

	go func() {
		result := performRequest(reqCtx, method, rawURL, contentType, body)
		store.mu.Lock()
		store.result = result
		store.cancel = nil
		if result.err != nil {
			store.state = httpStateError
		} else {
			store.state = httpStateComplete
		}
		store.mu.Unlock()
	}()
	return nil
}

func performRequest(ctx context.Context, method, rawURL, contentType, body string) *asyncHTTPResult {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return &asyncHTTPResult{err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &asyncHTTPResult{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &asyncHTTPResult{err: err}
	}

	return &asyncHTTPResult{body: data}
}
