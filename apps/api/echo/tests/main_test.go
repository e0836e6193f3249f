package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/fortytworoma/monitor/apps/api/echo"
	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
	"github.com/fortytworoma/monitor/services/email"
	"github.com/fortytworoma/monitor/services/logger"
	"github.com/fortytworoma/monitor/storage/auditlog"
	"github.com/fortytworoma/monitor/storage/jsonfile"
	"github.com/fortytworoma/monitor/tests"
)

const (
	sessionCookie = "monitor_session"
	stateCookie   = "monitor_oauth_state"
)

var (
	conf *core.Config

	annRepo    announce.Repository
	maintRepo  cluster.MaintenanceRepository
	bnrSvc     banner.ServiceInterface
	clusterSvc *cluster.Service
	feedSrc    *cluster.FeedSourceMock
	evtSrc     *event.SourceMock
	provider   *identity.ProviderMock

	staffSess   = identity.Session{Login: "thor", Name: "Thor", Staff: true}
	studentSess = identity.Session{Login: "loki", Name: "Loki"}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// setup returns a fresh server over empty stores and canned upstreams.
func setup(t *testing.T) Server {
	conf = testutil.Config(t)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", 0), conf)
	logger.Enable(false)

	// set up stores
	annRepo = jsonfile.NewAnnouncementRepository(conf.DataDir)
	bnrRepo := jsonfile.NewBannerRepository(conf.DataDir)
	maintRepo = jsonfile.NewMaintenanceRepository(conf.DataDir)
	evtRepo := jsonfile.NewEventRepository(conf.DataDir)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	feedSrc = cluster.NewFeedSourceMock(cluster.Feed{})
	evtSrc = &event.SourceMock{}
	provider = &identity.ProviderMock{}

	bnrSvc = banner.NewService(bnrRepo)
	clusterSvc = cluster.NewService(feedSrc, maintRepo, mailSvc, conf, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	return NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		AnnounceSvc: announce.NewService(annRepo),
		BannerSvc:   bnrSvc,
		ClusterSvc:  clusterSvc,
		EventSvc:    event.NewService(evtSrc, evtRepo, logger),
		IdentitySvc: identity.NewService(provider, conf),
		AuditLog:    auditlog.NewFileLog(conf.DataDir, logger),
		Validate:    validate,
		Translator:  translator,
	})
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
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
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, sess identity.Session) string {
	token, err := GenerateToken(GetSessionClaims(sess))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func checkRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	if rec.Code != http.StatusFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != wantLocation {
		t.Errorf("failed! location = %v; want %v", loc, wantLocation)
	}
}

func getCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// readAuditLog returns the action log contents; empty when nothing was recorded.
func readAuditLog(t *testing.T) string {
	data, err := os.ReadFile(filepath.Join(conf.DataDir, "actions.log"))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("readAuditLog(): %v", err)
	}
	return string(data)
}
