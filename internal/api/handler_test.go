package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pm-tracker-backend/config"
	"pm-tracker-backend/internal/db"
	"pm-tracker-backend/internal/model"
	"pm-tracker-backend/internal/mw"
	"pm-tracker-backend/internal/pm"
	"pm-tracker-backend/internal/sheet"
	"pm-tracker-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	token   string
}

func testConfig(secret string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTL:        time.Minute,
			MaxUploadMB:     1,
		},
		Auth: config.AuthConfig{JWTSecret: secret},
	}
}

func newTestEnvWithSecret(t *testing.T, secret string) *testEnv {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	svc := pm.NewService(s, nil, zap.NewNop())
	h := NewHandler(svc, s, &webpush.Options{}, 1, zap.NewNop())
	env := &testEnv{router: NewRouter(h, testConfig(secret), zap.NewNop()), handler: h}

	if secret != "" {
		claims := mw.Claims{
			Name: "Operator",
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-7",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		env.token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
	}
	return env
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithSecret(t, "")
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const atm1 = `{"idMsn":"ATM-1","alamat":"Jl. Merdeka 1","pengelola":"Bank Mandiri","teknisi":"Andi","periodePM":"Q1 2024"}`

func TestMachines_CRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/pm-machines", atm1)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[model.PmMachine](t, w)
	assert.Equal(t, 1, created.No)
	assert.Equal(t, model.StatusOutstanding, created.Status)

	w = env.do(http.MethodPost, "/api/pm-machines", atm1)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = env.do(http.MethodGet, "/api/pm-machines/ATM-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jl. Merdeka 1", decode[model.PmMachine](t, w).Alamat)

	w = env.do(http.MethodPut, "/api/pm-machines/ATM-1", `{"alamat":"Jl. Baru 2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Jl. Baru 2", decode[model.PmMachine](t, w).Alamat)

	// The cached GET must not survive the update.
	w = env.do(http.MethodGet, "/api/pm-machines/ATM-1", "")
	assert.Equal(t, "Jl. Baru 2", decode[model.PmMachine](t, w).Alamat)

	w = env.do(http.MethodPatch, "/api/pm-machines/ATM-1", `{"teknisi":"Budi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Budi", decode[model.PmMachine](t, w).Teknisi)

	w = env.do(http.MethodPut, "/api/pm-machines/ATM-404", `{"alamat":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/pm-machines/ATM-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMachines_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/pm-machines", `{"idMsn":"ATM-1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[struct {
		Error   string          `json:"error"`
		Details []pm.FieldError `json:"details"`
	}](t, w)
	assert.Equal(t, "Validation failed", body.Error)
	var fields []string
	for _, d := range body.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"alamat", "pengelola", "teknisi"}, fields)

	w = env.do(http.MethodPost, "/api/pm-machines", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestMachines_LifecycleAndDelete(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/pm-machines", atm1).Code)

	w := env.do(http.MethodPost, "/api/pm-machines/ATM-1/complete", `{"tglSelesaiPM":"2024-02-10"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusDone, decode[model.PmMachine](t, w).Status)

	w = env.do(http.MethodPost, "/api/pm-machines/ATM-1/reschedule", `{"periodePM":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/pm-machines/ATM-1/reschedule", `{"periodePM":"Q2 2024"}`)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[model.PmMachine](t, w)
	assert.Equal(t, model.StatusOutstanding, m.Status)
	assert.Equal(t, "Q2 2024", *m.PeriodePM)

	w = env.do(http.MethodDelete, "/api/pm-machines/ATM-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Machine data deleted successfully"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/pm-machines/ATM-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	m = decode[model.PmMachine](t, w)
	assert.Nil(t, m.PeriodePM)
	assert.Nil(t, m.TglSelesaiPM)

	w = env.do(http.MethodDelete, "/api/pm-machines/ATM-1?deleteAll=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/pm-machines/ATM-1", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/pm-machines/ATM-1?deleteAll=true", "").Code)
}

func TestMachines_Search(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/pm-machines", atm1).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/pm-machines",
		`{"idMsn":"ATM-2","alamat":"Jl. Sudirman","pengelola":"BCA","teknisi":"Rudi"}`).Code)

	w := env.do(http.MethodGet, "/api/pm-machines", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.PmMachine](t, w), 2)

	w = env.do(http.MethodGet, "/api/pm-machines?search=mandiri", "")
	list := decode[[]model.PmMachine](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "ATM-1", list[0].IDMsn)

	w = env.do(http.MethodGet, "/api/pm-machines?search=sudirman", "")
	assert.Empty(t, decode[[]model.PmMachine](t, w))
}

func TestNotes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/machine-notes/ATM-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode[model.MachineNote](t, w).Content)

	w = env.do(http.MethodPost, "/api/machine-notes", `{"idMsn":"ATM-1","content":"replace filter"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/machine-notes/ATM-1", "")
	assert.Equal(t, "replace filter", decode[model.MachineNote](t, w).Content)

	w = env.do(http.MethodPost, "/api/machine-notes", `{"content":"orphan"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartUpload(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mpw := multipart.NewWriter(body)
	part, err := mpw.CreateFormFile(field, "machines.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())
	return body, mpw.FormDataContentType()
}

func importWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Id Msn", "Alamat", "Pengelola", "Teknisi", "Status"},
		{"ATM-10", "Jl. A", "BRI", "Eko", "Done"},
		{"ATM-11", "", "BNI", "Eko", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportExport(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "file", importWorkbook(t))
	req := httptest.NewRequest(http.MethodPost, "/api/pm-machines/import/excel", body)
	req.Header.Set("Content-Type", contentType)
	w := env.send(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[struct {
		Message  string   `json:"message"`
		Imported int      `json:"imported"`
		Errors   []string `json:"errors"`
	}](t, w)
	assert.Equal(t, "Import completed. 1 machines processed.", result.Message)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Row 2: "), result.Errors[0])

	w = env.do(http.MethodGet, "/api/pm-machines/export/excel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sheet.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="pm-data.xlsx"`)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(sheet.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ATM-10", rows[1][1])
	assert.Equal(t, "Done", rows[1][6])
}

func TestImport_Rejections(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "upload", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/pm-machines/import/excel", body)
	req.Header.Set("Content-Type", contentType)
	assert.Equal(t, http.StatusBadRequest, env.send(req).Code)

	body, contentType = multipartUpload(t, "file", []byte("not a spreadsheet"))
	req = httptest.NewRequest(http.MethodPost, "/api/pm-machines/import/excel", body)
	req.Header.Set("Content-Type", contentType)
	w := env.send(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid spreadsheet file"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnvWithSecret(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/pm-machines", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/pm-machines", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/auth/user", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-7","name":"Operator","email":"","role":"admin"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","machines":0}`, w.Body.String())
}
