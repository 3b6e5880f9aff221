package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/raulpleon95-ctrl/SECUNDARIA/apps/api/echo"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/kv/memkv"
	testutil "github.com/raulpleon95-ctrl/SECUNDARIA/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func ctx() context.Context { return context.Background() }

type fixture struct {
	app     echoapi.Server
	conf    *core.Config
	school  *school.Service
	users   *user.Service
	local   *memkv.Store
	reloads int32
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	local := memkv.New()
	schoolSvc := school.NewService(local, nil, logger)
	require.NoError(t, schoolSvc.Load(ctx()))
	usrSvc := user.NewService(school.UserRepository(schoolSvc), validate)

	fx := &fixture{conf: conf, school: schoolSvc, users: usrSvc, local: local}
	fx.app = echoapi.NewServer(
		&echoapi.Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			Reload:         func() { atomic.AddInt32(&fx.reloads, 1) },
		},
		&echoapi.Deps{SchoolSvc: schoolSvc, UserSvc: usrSvc, Local: local},
	)
	return fx
}

// user returns the stored user `id`, failing the test if missing.
func (fx *fixture) user(t *testing.T, id string) user.User {
	t.Helper()
	usr, ok := fx.school.Current().User(id)
	require.True(t, ok, "user %s", id)
	return usr
}

func (fx *fixture) token(t *testing.T, id string) string {
	t.Helper()
	token, err := echoapi.GenerateToken(fx.conf, echoapi.NewClaims(fx.conf, fx.user(t, id)))
	require.NoError(t, err)
	return token
}

func (fx *fixture) putUser(t *testing.T, usr user.User) {
	t.Helper()
	_, err := fx.school.Dispatch(ctx(), school.PutUser(usr))
	require.NoError(t, err)
}

func (fx *fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	fx.app.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := fx.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData checks the response code, and the body when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
