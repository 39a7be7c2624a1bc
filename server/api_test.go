package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"contactdesk/config"
	"contactdesk/db"
	"contactdesk/pkg/logger"
	"contactdesk/server"
	"contactdesk/services/token"
	"contactdesk/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

const maxUploadSize = 200_000

type APITestSuite struct {
	suite.Suite
	app        *fiber.App
	store      *db.Store
	tokens     *token.Manager
	uploadsDir string

	adminID    string
	adminToken string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	base := s.T().TempDir()
	s.uploadsDir = filepath.Join(base, "uploads")

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         3000,
			PublicDir:    filepath.Join(base, "public"),
			UploadsDir:   s.uploadsDir,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Token:    config.TokenConfig{Secret: "test-secret", TTL: time.Hour},
		Database: config.DatabaseConfig{Path: filepath.Join(base, "test.db")},
		Upload:   config.UploadConfig{MaxFileSize: maxUploadSize},
		RateLimit: config.RateLimitConfig{
			Capacity:     100_000,
			RefillRate:   1000,
			RefillPeriod: time.Second,
		},
	}

	store, err := db.Open(cfg.Database.Path)
	s.Require().NoError(err)
	s.store = store

	s.tokens = token.NewManager(cfg.Token.Secret, cfg.Token.TTL)

	quiet, err := logger.NewWithConfig(logger.Config{Output: io.Discard, Level: logger.ERROR})
	s.Require().NoError(err)

	srv, err := server.NewServer(cfg, store, s.tokens, quiet)
	s.Require().NoError(err)
	s.app = srv.App

	s.adminID, s.adminToken = s.createUser("admin", "admin123", db.RoleAdmin)
}

func (s *APITestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

// createUser seeds an account directly in the store and returns its id and
// a valid bearer token.
func (s *APITestSuite) createUser(username, password, role string) (id, bearer string) {
	hash, appErr := utils.HashPassword(password)
	s.Require().Nil(appErr)

	user, err := s.store.CreateUser(s.T().Context(), username, hash, role)
	s.Require().NoError(err)

	raw, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	s.Require().NoError(err)
	return user.ID, raw
}

func (s *APITestSuite) do(req *http.Request) *http.Response {
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

func (s *APITestSuite) jsonRequest(method, target, bearer string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func (s *APITestSuite) formRequest(method, target, bearer string, fields map[string]string, iconName, iconType string, icon []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	if icon != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename="%s"`, iconName))
		header.Set("Content-Type", iconType)
		part, err := w.CreatePart(header)
		s.Require().NoError(err)
		_, err = part.Write(icon)
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func (s *APITestSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *APITestSuite) errorCode(resp *http.Response) string {
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	s.decode(resp, &envelope)
	return envelope.Error.Code
}

func (s *APITestSuite) pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), B: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *APITestSuite) createContact(bearer string, fields map[string]string) db.Contact {
	resp := s.do(s.formRequest("POST", "/api/contacts", bearer, fields, "", "", nil))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var contact db.Contact
	s.decode(resp, &contact)
	return contact
}

// Health and auth

func (s *APITestSuite) TestHealth() {
	resp := s.do(httptest.NewRequest("GET", "/api/health", nil))
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]string
	s.decode(resp, &body)
	s.Equal("ok", body["status"])
}

func (s *APITestSuite) TestSignupAndLogin() {
	resp := s.do(s.jsonRequest("POST", "/api/auth/signup", "", map[string]string{
		"username": "alice", "password": "password1",
	}))
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate username conflicts.
	resp = s.do(s.jsonRequest("POST", "/api/auth/signup", "", map[string]string{
		"username": "alice", "password": "password2",
	}))
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("USER_EXISTS", s.errorCode(resp))

	resp = s.do(s.jsonRequest("POST", "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "password1",
	}))
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	s.decode(resp, &login)
	s.NotEmpty(login.Token)
	s.Equal("alice", login.User.Username)
	s.Equal(db.RoleUser, login.User.Role, "signup never grants admin")

	// Wrong password and unknown user are indistinguishable.
	resp = s.do(s.jsonRequest("POST", "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-pass",
	}))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(resp))

	resp = s.do(s.jsonRequest("POST", "/api/auth/login", "", map[string]string{
		"username": "nobody", "password": "password1",
	}))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(resp))
}

func (s *APITestSuite) TestSignupValidation() {
	resp := s.do(s.jsonRequest("POST", "/api/auth/signup", "", map[string]string{
		"username": "ab", "password": "password1",
	}))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("VALIDATION_FAILED", s.errorCode(resp))

	resp = s.do(s.jsonRequest("POST", "/api/auth/signup", "", map[string]string{
		"username": "alice", "password": "short",
	}))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("VALIDATION_FAILED", s.errorCode(resp))
}

func (s *APITestSuite) TestVerify() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)

	resp := s.do(s.jsonRequest("GET", "/api/auth/verify", bearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	s.decode(resp, &body)
	s.Equal("alice", body.User.Username)
	s.Equal(db.RoleUser, body.User.Role)

	// Missing token is 401, a broken one is 403.
	resp = s.do(s.jsonRequest("GET", "/api/auth/verify", "", nil))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("UNAUTHORIZED", s.errorCode(resp))

	resp = s.do(s.jsonRequest("GET", "/api/auth/verify", "garbage-token", nil))
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("FORBIDDEN", s.errorCode(resp))
}

func (s *APITestSuite) TestAdminRegister() {
	_, userBearer := s.createUser("alice", "password1", db.RoleUser)

	resp := s.do(s.jsonRequest("POST", "/api/auth/register", userBearer, map[string]string{
		"username": "backup-admin", "password": "password1", "role": db.RoleAdmin,
	}))
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.jsonRequest("POST", "/api/auth/register", s.adminToken, map[string]string{
		"username": "backup-admin", "password": "password1", "role": db.RoleAdmin,
	}))
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	created, err := s.store.GetUserByUsername(s.T().Context(), "backup-admin")
	s.Require().NoError(err)
	s.Equal(db.RoleAdmin, created.Role)

	// Unknown roles are rejected.
	resp = s.do(s.jsonRequest("POST", "/api/auth/register", s.adminToken, map[string]string{
		"username": "strange", "password": "password1", "role": "superuser",
	}))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// User management

func (s *APITestSuite) TestUserManagement() {
	aliceID, aliceBearer := s.createUser("alice", "password1", db.RoleUser)

	// Listing is admin only.
	resp := s.do(s.jsonRequest("GET", "/api/users", aliceBearer, nil))
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.jsonRequest("GET", "/api/users", s.adminToken, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var users []db.User
	s.decode(resp, &users)
	s.Len(users, 2)

	// Self-deletion is refused; deleting another account works once.
	resp = s.do(s.jsonRequest("DELETE", "/api/users/"+s.adminID, s.adminToken, nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_OPERATION", s.errorCode(resp))

	resp = s.do(s.jsonRequest("DELETE", "/api/users/"+aliceID, s.adminToken, nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.jsonRequest("DELETE", "/api/users/"+aliceID, s.adminToken, nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// Contacts

func (s *APITestSuite) TestContactCRUD() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)

	created := s.createContact(bearer, map[string]string{
		"name":  "Budi Santoso",
		"email": "budi@example.com",
		"phone": "081234567890",
		"notes": "met at the conference",
	})
	s.NotEmpty(created.ID)
	s.Equal("Budi Santoso", created.Name)

	resp := s.do(s.jsonRequest("GET", "/api/contacts/"+created.ID, bearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var got db.Contact
	s.decode(resp, &got)
	s.Equal(created.ID, got.ID)

	resp = s.do(s.jsonRequest("GET", "/api/contacts", bearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var listed []db.Contact
	s.decode(resp, &listed)
	s.Len(listed, 1)

	// Partial update touches only the submitted fields.
	resp = s.do(s.formRequest("PUT", "/api/contacts/"+created.ID, bearer,
		map[string]string{"name": "Budi Hartono"}, "", "", nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var updated struct {
		Success bool       `json:"success"`
		Contact db.Contact `json:"contact"`
	}
	s.decode(resp, &updated)
	s.True(updated.Success)
	s.Equal("Budi Hartono", updated.Contact.Name)
	s.Equal("budi@example.com", updated.Contact.Email)
	s.Equal("081234567890", updated.Contact.Phone)

	resp = s.do(s.jsonRequest("DELETE", "/api/contacts/"+created.ID, bearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var deleted struct {
		Success bool       `json:"success"`
		Removed db.Contact `json:"removed"`
	}
	s.decode(resp, &deleted)
	s.True(deleted.Success)
	s.Equal(created.ID, deleted.Removed.ID)

	// Second delete and subsequent reads report not found.
	resp = s.do(s.jsonRequest("DELETE", "/api/contacts/"+created.ID, bearer, nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.jsonRequest("GET", "/api/contacts/"+created.ID, bearer, nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestContactValidation() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)

	resp := s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"email": "budi@example.com"}, "", "", nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("VALIDATION_FAILED", s.errorCode(resp))

	resp = s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi", "email": "not-an-email"}, "", "", nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi", "phone": "12345"}, "", "", nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestContactSearch() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)

	for _, name := range []string{"Budi Santoso", "Siti Rahayu", "Budi Hartono"} {
		s.createContact(bearer, map[string]string{"name": name})
	}

	resp := s.do(s.jsonRequest("GET", "/api/contacts?search=bUdI", bearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var contacts []db.Contact
	s.decode(resp, &contacts)
	s.Len(contacts, 2)
}

func (s *APITestSuite) TestContactsRequireAuth() {
	resp := s.do(s.jsonRequest("GET", "/api/contacts", "", nil))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

// Ownership and impersonation

func (s *APITestSuite) TestForeignContactsAreInvisible() {
	_, aliceBearer := s.createUser("alice", "password1", db.RoleUser)
	_, bobBearer := s.createUser("bob", "password1", db.RoleUser)

	contact := s.createContact(aliceBearer, map[string]string{"name": "Budi Santoso"})

	// Every operation on a foreign record reads as not found.
	resp := s.do(s.jsonRequest("GET", "/api/contacts/"+contact.ID, bobBearer, nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("NOT_FOUND", s.errorCode(resp))

	resp = s.do(s.formRequest("PUT", "/api/contacts/"+contact.ID, bobBearer,
		map[string]string{"name": "Hijacked"}, "", "", nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(s.jsonRequest("DELETE", "/api/contacts/"+contact.ID, bobBearer, nil))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// The record is untouched.
	kept, err := s.store.GetContact(s.T().Context(), contact.ID)
	s.Require().NoError(err)
	s.Equal("Budi Santoso", kept.Name)

	resp = s.do(s.jsonRequest("GET", "/api/contacts", bobBearer, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var bobContacts []db.Contact
	s.decode(resp, &bobContacts)
	s.Empty(bobContacts)
}

func (s *APITestSuite) TestAdminImpersonation() {
	aliceID, aliceBearer := s.createUser("alice", "password1", db.RoleUser)

	s.createContact(aliceBearer, map[string]string{"name": "Budi Santoso"})

	// Plain admin listing sees the admin's own (empty) book.
	resp := s.do(s.jsonRequest("GET", "/api/contacts", s.adminToken, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var own []db.Contact
	s.decode(resp, &own)
	s.Empty(own)

	resp = s.do(s.jsonRequest("GET", "/api/contacts?targetUserId="+aliceID, s.adminToken, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var theirs []db.Contact
	s.decode(resp, &theirs)
	s.Len(theirs, 1)

	// Creating on behalf of a user assigns them ownership.
	resp = s.do(s.formRequest("POST", "/api/contacts", s.adminToken,
		map[string]string{"name": "Siti Rahayu", "targetUserId": aliceID}, "", "", nil))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created db.Contact
	s.decode(resp, &created)
	s.Equal(aliceID, created.CreatedBy)

	// Admins can update foreign records directly.
	resp = s.do(s.formRequest("PUT", "/api/contacts/"+created.ID, s.adminToken,
		map[string]string{"notes": "updated by support"}, "", "", nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestNonAdminTargetUserIgnored() {
	aliceID, _ := s.createUser("alice", "password1", db.RoleUser)
	bobID, bobBearer := s.createUser("bob", "password1", db.RoleUser)

	resp := s.do(s.formRequest("POST", "/api/contacts", bobBearer,
		map[string]string{"name": "Budi Santoso", "targetUserId": aliceID}, "", "", nil))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created db.Contact
	s.decode(resp, &created)
	s.Equal(bobID, created.CreatedBy, "non-admin targetUserId must be ignored")
}

// Icon uploads

func (s *APITestSuite) TestIconUploadRoundTrip() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)
	icon := s.pngBytes()

	resp := s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi Santoso"}, "budi.png", "image/png", icon))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created db.Contact
	s.decode(resp, &created)
	s.Require().NotEmpty(created.Icon)

	// The stored path serves the exact uploaded bytes.
	resp = s.do(httptest.NewRequest("GET", created.Icon, nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Require().NoError(err)
	s.Equal(icon, served)

	firstFile := filepath.Join(s.uploadsDir, filepath.Base(created.Icon))

	// Replacing the icon deletes the previous file.
	resp = s.do(s.formRequest("PUT", "/api/contacts/"+created.ID, bearer,
		nil, "budi2.png", "image/png", icon))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var updated struct {
		Contact db.Contact `json:"contact"`
	}
	s.decode(resp, &updated)
	s.NotEqual(created.Icon, updated.Contact.Icon)

	_, statErr := os.Stat(firstFile)
	s.True(os.IsNotExist(statErr), "replaced icon file must be removed")

	// Deleting the contact removes its file too.
	secondFile := filepath.Join(s.uploadsDir, filepath.Base(updated.Contact.Icon))
	resp = s.do(s.jsonRequest("DELETE", "/api/contacts/"+created.ID, bearer, nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, statErr = os.Stat(secondFile)
	s.True(os.IsNotExist(statErr), "deleted contact's icon file must be removed")
}

func (s *APITestSuite) TestOversizedIconRejectedBeforeWrite() {
	aliceID, bearer := s.createUser("alice", "password1", db.RoleUser)

	resp := s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi Santoso"}, "huge.png", "image/png",
		make([]byte, maxUploadSize+1)))
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
	s.Equal("FILE_TOO_LARGE", s.errorCode(resp))

	// No record and no file may exist after the rejection.
	contacts, err := s.store.ListContacts(s.T().Context(), aliceID, "")
	s.Require().NoError(err)
	s.Empty(contacts)

	entries, err := os.ReadDir(s.uploadsDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *APITestSuite) TestNonImageIconRejected() {
	_, bearer := s.createUser("alice", "password1", db.RoleUser)

	resp := s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi Santoso"}, "notes.txt", "text/plain",
		[]byte("plain text")))
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
	s.Equal("UNSUPPORTED_MEDIA_TYPE", s.errorCode(resp))

	// Declared image type with undecodable payload is also refused.
	resp = s.do(s.formRequest("POST", "/api/contacts", bearer,
		map[string]string{"name": "Budi Santoso"}, "fake.png", "image/png",
		[]byte("not a png at all")))
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestMetricsEndpoint() {
	resp := s.do(httptest.NewRequest("GET", "/metrics", nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Require().NoError(err)
	s.Contains(string(body), "http_requests_total")
}
