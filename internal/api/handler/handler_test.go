package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/service"
	"classroom-attendance/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(6); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock StudentService ──

type mockStudentService struct {
	listResult   []dto.StudentResponse
	listErr      error
	createResult *dto.StudentResponse
	createErr    error
	updateResult *dto.StudentResponse
	updateErr    error
	deleteResult *dto.DeleteStudentResponse
	deleteErr    error
	bulkResult   []dto.StudentResponse
	bulkErr      error

	lastUpdate *dto.UpdateStudentRequest
	lastBulk   []dto.CreateStudentRequest
}

func (m *mockStudentService) List(_ context.Context) ([]dto.StudentResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockStudentService) Create(_ context.Context, _ *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockStudentService) Update(_ context.Context, _ string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	m.lastUpdate = req
	return m.updateResult, m.updateErr
}
func (m *mockStudentService) Delete(_ context.Context, _ string) (*dto.DeleteStudentResponse, error) {
	return m.deleteResult, m.deleteErr
}
func (m *mockStudentService) BulkCreate(_ context.Context, reqs []dto.CreateStudentRequest) ([]dto.StudentResponse, error) {
	m.lastBulk = reqs
	return m.bulkResult, m.bulkErr
}

// ── Mock RosterService ──

type mockRosterService struct {
	exportBuf    *bytes.Buffer
	exportErr    error
	importResult *dto.ImportStudentsResponse
	importErr    error
	importedBody string
}

func (m *mockRosterService) ExportCSV(_ context.Context) (*bytes.Buffer, error) {
	return m.exportBuf, m.exportErr
}
func (m *mockRosterService) TemplateCSV() (*bytes.Buffer, error) {
	return bytes.NewBufferString("name,rollNumber,email\nStudent 1,101,student1@example.com\n"), nil
}
func (m *mockRosterService) ImportCSV(_ context.Context, r io.Reader) (*dto.ImportStudentsResponse, error) {
	b, _ := io.ReadAll(r)
	m.importedBody = string(b)
	return m.importResult, m.importErr
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	listResult  []dto.AttendanceResponse
	listErr     error
	hoursResult map[string]float64
	statsResult *dto.AttendanceStatsResponse
	statsErr    error
	markResult  *dto.AttendanceResponse
	markErr     error
	bulkResult  *dto.BulkMarkResponse
	bulkErr     error
	sweepResult int64

	lastMark *dto.MarkAttendanceRequest
}

func (m *mockAttendanceService) ListByPeriod(_ context.Context, _, _ string) ([]dto.AttendanceResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockAttendanceService) DayHours(_ context.Context, _ string) (map[string]float64, error) {
	return m.hoursResult, nil
}
func (m *mockAttendanceService) Stats(_ context.Context, _, _ string) (*dto.AttendanceStatsResponse, error) {
	return m.statsResult, m.statsErr
}
func (m *mockAttendanceService) Mark(_ context.Context, req *dto.MarkAttendanceRequest) (*dto.AttendanceResponse, error) {
	m.lastMark = req
	return m.markResult, m.markErr
}
func (m *mockAttendanceService) BulkMark(_ context.Context, _ *dto.BulkMarkAttendanceRequest) (*dto.BulkMarkResponse, error) {
	return m.bulkResult, m.bulkErr
}
func (m *mockAttendanceService) SweepOrphans(_ context.Context) (int64, error) {
	return m.sweepResult, nil
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportAttendance(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, path, route string, h gin.HandlerFunc, body io.Reader, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

func multipartCSV(t *testing.T, field, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "students.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// ═══════════════════════════════════════════════════════════
// StudentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestStudentHandler_ListStudents_Success(t *testing.T) {
	mock := &mockStudentService{listResult: []dto.StudentResponse{{ID: "1", Name: "Ada", RollNumber: "101"}}}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("GET", "/students", "/students", h.ListStudents, nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data []dto.StudentResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data) != 1 || body.Data[0].RollNumber != "101" {
		t.Errorf("unexpected data: %+v", body.Data)
	}
}

func TestStudentHandler_ListStudents_StorageFailure(t *testing.T) {
	mock := &mockStudentService{listErr: fmt.Errorf("db down")}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("GET", "/students", "/students", h.ListStudents, nil, "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestStudentHandler_CreateStudent_Success(t *testing.T) {
	mock := &mockStudentService{createResult: &dto.StudentResponse{ID: "1717000000000", Name: "Ada", RollNumber: "101"}}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students", "/students", h.CreateStudent,
		jsonBody(dto.CreateStudentRequest{Name: "Ada", RollNumber: "101"}), "application/json")

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestStudentHandler_CreateStudent_MissingFields(t *testing.T) {
	mock := &mockStudentService{createErr: service.ErrStudentFieldsRequired}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students", "/students", h.CreateStudent,
		jsonBody(dto.CreateStudentRequest{Name: "Ada"}), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Message != "Name and rollNumber are required" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestStudentHandler_CreateStudent_Conflict(t *testing.T) {
	mock := &mockStudentService{createErr: service.ErrStudentRollNumberTaken}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students", "/students", h.CreateStudent,
		jsonBody(dto.CreateStudentRequest{Name: "Ada", RollNumber: "101"}), "application/json")

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20006 {
		t.Errorf("expected error code 20006, got %d", resp.Code)
	}
}

func TestStudentHandler_CreateStudent_RosterFull(t *testing.T) {
	mock := &mockStudentService{createErr: fmt.Errorf("%w (56 seats)", service.ErrRosterFull)}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students", "/students", h.CreateStudent,
		jsonBody(dto.CreateStudentRequest{Name: "Ada", RollNumber: "101"}), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStudentHandler_UpdateStudent_PatchPassesNilFields(t *testing.T) {
	mock := &mockStudentService{updateResult: &dto.StudentResponse{ID: "1"}}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("PUT", "/students/1", "/students/:id", h.UpdateStudent,
		strings.NewReader(`{"email":""}`), "application/json")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastUpdate.Name != nil || mock.lastUpdate.RollNumber != nil {
		t.Error("omitted fields should stay nil")
	}
	if mock.lastUpdate.Email == nil || *mock.lastUpdate.Email != "" {
		t.Error("explicit empty email should be passed through")
	}
}

func TestStudentHandler_UpdateStudent_NotFound(t *testing.T) {
	mock := &mockStudentService{updateErr: service.ErrStudentNotFound}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("PUT", "/students/nope", "/students/:id", h.UpdateStudent,
		strings.NewReader(`{"name":"X"}`), "application/json")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "Student not found" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestStudentHandler_DeleteStudent_Success(t *testing.T) {
	mock := &mockStudentService{deleteResult: &dto.DeleteStudentResponse{Message: "Student deleted", AttendanceRemoved: 3}}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("DELETE", "/students/1", "/students/:id", h.DeleteStudent, nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "Student deleted" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestStudentHandler_DeleteStudent_NotFound(t *testing.T) {
	mock := &mockStudentService{deleteErr: service.ErrStudentNotFound}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("DELETE", "/students/x", "/students/:id", h.DeleteStudent, nil, "")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStudentHandler_BulkCreate_Success(t *testing.T) {
	mock := &mockStudentService{bulkResult: []dto.StudentResponse{{ID: "a"}, {ID: "b"}}}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students/bulk", "/students/bulk", h.BulkCreateStudents,
		jsonBody([]dto.CreateStudentRequest{{Name: "A", RollNumber: "1"}, {Name: "B", RollNumber: "2"}}), "application/json")

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if len(mock.lastBulk) != 2 {
		t.Errorf("expected 2 candidates forwarded, got %d", len(mock.lastBulk))
	}
}

func TestStudentHandler_BulkCreate_InvalidItem(t *testing.T) {
	mock := &mockStudentService{bulkErr: fmt.Errorf("%w (item 2)", service.ErrStudentBulkInvalid)}
	h := NewStudentHandler(mock, &mockRosterService{})

	w := serve("POST", "/students/bulk", "/students/bulk", h.BulkCreateStudents,
		jsonBody([]dto.CreateStudentRequest{{Name: "A", RollNumber: "1"}, {Name: "B"}}), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); !strings.HasPrefix(resp.Message, "Each student must have a name and rollNumber") {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestStudentHandler_BulkCreate_BadJSON(t *testing.T) {
	h := NewStudentHandler(&mockStudentService{}, &mockRosterService{})

	w := serve("POST", "/students/bulk", "/students/bulk", h.BulkCreateStudents,
		strings.NewReader(`{"name":"not an array"}`), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStudentHandler_ImportStudents_Success(t *testing.T) {
	roster := &mockRosterService{importResult: &dto.ImportStudentsResponse{
		Imported: 2,
		Message:  "Successfully imported 2 student records.",
	}}
	h := NewStudentHandler(&mockStudentService{}, roster)

	body, ct := multipartCSV(t, "file", "name,rollNumber,email\nAda,101,\nGrace,102,\n")
	w := serve("POST", "/students/import", "/students/import", h.ImportStudents, body, ct)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "Successfully imported 2 student records." {
		t.Errorf("unexpected message: %s", resp.Message)
	}
	if !strings.Contains(roster.importedBody, "Grace,102") {
		t.Errorf("uploaded CSV not forwarded: %q", roster.importedBody)
	}
}

func TestStudentHandler_ImportStudents_MissingFile(t *testing.T) {
	h := NewStudentHandler(&mockStudentService{}, &mockRosterService{})

	body, ct := multipartCSV(t, "other", "x")
	w := serve("POST", "/students/import", "/students/import", h.ImportStudents, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStudentHandler_ImportStudents_NoValidRows(t *testing.T) {
	roster := &mockRosterService{importErr: service.ErrImportNoValidRows}
	h := NewStudentHandler(&mockStudentService{}, roster)

	body, ct := multipartCSV(t, "file", "name,rollNumber\n,\n")
	w := serve("POST", "/students/import", "/students/import", h.ImportStudents, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "No valid student records found." {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestStudentHandler_ExportStudents(t *testing.T) {
	roster := &mockRosterService{exportBuf: bytes.NewBufferString("name,rollNumber,email\nAda,101,\n")}
	h := NewStudentHandler(&mockStudentService{}, roster)

	w := serve("GET", "/students/export", "/students/export", h.ExportStudents, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "name,rollNumber,email") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestStudentHandler_DownloadTemplate(t *testing.T) {
	h := NewStudentHandler(&mockStudentService{}, &mockRosterService{})

	w := serve("GET", "/students/template", "/students/template", h.DownloadTemplate, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "students_template.csv") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_ListAttendance_Success(t *testing.T) {
	mock := &mockAttendanceService{listResult: []dto.AttendanceResponse{{StudentID: "1", Status: "present", Hours: 2}}}
	h := NewAttendanceHandler(mock)

	w := serve("GET", "/attendance?date=2024-09-02&period=1", "/attendance", h.ListAttendance, nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAttendanceHandler_ListAttendance_InvalidQuery(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	cases := []string{
		"/attendance?date=2024-09-02&period=7",
		"/attendance?date=2024-09-02&period=0",
		"/attendance?date=09/02/2024&period=1",
		"/attendance?period=1",
	}
	for _, path := range cases {
		w := serve("GET", path, "/attendance", h.ListAttendance, nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
		if resp := parseResponse(w); resp.Code != 10001 {
			t.Errorf("%s: expected error code 10001, got %d", path, resp.Code)
		}
	}
}

func TestAttendanceHandler_GetDayHours(t *testing.T) {
	mock := &mockAttendanceService{hoursResult: map[string]float64{"1": 4.5}}
	h := NewAttendanceHandler(mock)

	w := serve("GET", "/attendance/hours?date=2024-09-02", "/attendance/hours", h.GetDayHours, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data map[string]float64 `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data["1"] != 4.5 {
		t.Errorf("unexpected data: %v", body.Data)
	}
}

func TestAttendanceHandler_GetStats(t *testing.T) {
	mock := &mockAttendanceService{statsResult: &dto.AttendanceStatsResponse{Total: 0, PresentPercentage: 0}}
	h := NewAttendanceHandler(mock)

	w := serve("GET", "/attendance/stats?date=2024-09-02&period=1", "/attendance/stats", h.GetStats, nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAttendanceHandler_MarkAttendance_Success(t *testing.T) {
	mock := &mockAttendanceService{markResult: &dto.AttendanceResponse{StudentID: "1", Status: "present", Hours: 2}}
	h := NewAttendanceHandler(mock)

	w := serve("PUT", "/attendance", "/attendance", h.MarkAttendance, strings.NewReader(
		`{"date":"2024-09-02","period":"1","studentId":"1","status":"present","timeRange":{"startTime":"09:00","endTime":"11:00"}}`,
	), "application/json")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Message != "Attendance saved!" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
	if mock.lastMark.TimeRange == nil || mock.lastMark.TimeRange.EndTime != "11:00" {
		t.Errorf("time range not forwarded: %+v", mock.lastMark)
	}
}

func TestAttendanceHandler_MarkAttendance_UnsetStatusAllowed(t *testing.T) {
	mock := &mockAttendanceService{markResult: &dto.AttendanceResponse{StudentID: "1"}}
	h := NewAttendanceHandler(mock)

	w := serve("PUT", "/attendance", "/attendance", h.MarkAttendance, strings.NewReader(
		`{"date":"2024-09-02","period":"1","studentId":"1","status":""}`,
	), "application/json")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAttendanceHandler_MarkAttendance_InvalidBody(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	cases := []string{
		`{"date":"2024-09-02","period":"1","studentId":"1","status":"late"}`,
		`{"date":"2024-09-02","period":"1","studentId":"1","status":"present","timeRange":{"startTime":"9am","endTime":"11:00"}}`,
		`{"date":"2024-09-02","period":"1","status":"present"}`,
	}
	for _, body := range cases {
		w := serve("PUT", "/attendance", "/attendance", h.MarkAttendance, strings.NewReader(body), "application/json")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestAttendanceHandler_MarkAttendance_InvertedRange(t *testing.T) {
	mock := &mockAttendanceService{markErr: fmt.Errorf("%w: endTime must not be earlier than startTime", service.ErrAttendanceInvalidRange)}
	h := NewAttendanceHandler(mock)

	w := serve("PUT", "/attendance", "/attendance", h.MarkAttendance, strings.NewReader(
		`{"date":"2024-09-02","period":"1","studentId":"1","status":"present","timeRange":{"startTime":"11:00","endTime":"09:00"}}`,
	), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21004 {
		t.Errorf("expected error code 21004, got %d", resp.Code)
	}
}

func TestAttendanceHandler_MarkAttendance_UnknownStudent(t *testing.T) {
	mock := &mockAttendanceService{markErr: fmt.Errorf("%w: ghost", service.ErrStudentNotFound)}
	h := NewAttendanceHandler(mock)

	w := serve("PUT", "/attendance", "/attendance", h.MarkAttendance, strings.NewReader(
		`{"date":"2024-09-02","period":"1","studentId":"ghost","status":"absent"}`,
	), "application/json")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "Student not found" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestAttendanceHandler_BulkMark_Success(t *testing.T) {
	mock := &mockAttendanceService{bulkResult: &dto.BulkMarkResponse{Updated: 3, Message: "Bulk attendance saved!"}}
	h := NewAttendanceHandler(mock)

	w := serve("POST", "/attendance/bulk", "/attendance/bulk", h.BulkMarkAttendance, jsonBody(dto.BulkMarkAttendanceRequest{
		Date: "2024-09-02", Period: "2", Status: "present", StudentIDs: []string{"1", "2", "3"},
	}), "application/json")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Message != "Bulk attendance saved!" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestAttendanceHandler_BulkMark_EmptyIDs(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := serve("POST", "/attendance/bulk", "/attendance/bulk", h.BulkMarkAttendance, jsonBody(dto.BulkMarkAttendanceRequest{
		Date: "2024-09-02", Period: "2", Status: "present", StudentIDs: []string{},
	}), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAttendanceHandler_SweepOrphans(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{sweepResult: 4})

	w := serve("POST", "/maintenance/sweep-orphans", "/maintenance/sweep-orphans", h.SweepOrphans, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data dto.SweepResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Removed != 4 {
		t.Errorf("expected removed=4, got %d", body.Data.Removed)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportAttendance_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("PK-fake"), filename: "attendance_2024-09-02.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/attendance?date=2024-09-02", "/export/attendance", h.ExportAttendance, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected Content-Type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance_2024-09-02.xlsx") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

func TestExportHandler_ExportAttendance_MissingDate(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	w := serve("GET", "/export/attendance", "/export/attendance", h.ExportAttendance, nil, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
